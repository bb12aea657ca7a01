package state

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/granitemd/granite/internal/config"
	"github.com/granitemd/granite/internal/constants"
	"github.com/granitemd/granite/internal/docindex"
	"github.com/granitemd/granite/internal/editor"
	"github.com/granitemd/granite/internal/pane"
	"github.com/granitemd/granite/internal/session"
	"github.com/granitemd/granite/internal/store"
	"github.com/granitemd/granite/internal/viewstate"
)

// State bundles the wired collaborators every command works against.
type State struct {
	Config   *config.Config
	Store    store.Store
	Index    *docindex.Index
	KV       session.KV
	Manager  *pane.Manager
	Viewport *viewstate.Viewport
	Home     string
}

func NewState() (*State, error) {
	home, err := GetHomeDir()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(home)
	if err != nil {
		return nil, err
	}

	st := newStore(cfg)

	kv, err := session.NewFileKV(cfg.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	mgr := newManager(cfg, st, kv)

	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width, height = 100, 40
	}

	return &State{
		Config:   cfg,
		Store:    st,
		Index:    docindex.New(),
		KV:       kv,
		Manager:  mgr,
		Viewport: viewstate.New(width, height),
		Home:     home,
	}, nil
}

// newStore wires the document store. The cache holds a couple of screens
// worth of recently closed notes.
func newStore(cfg *config.Config) store.Store {
	return store.NewCachedStore(store.NewClient(cfg.ServerURL, cfg.Token), 4*cfg.MaxPanes)
}

func newManager(cfg *config.Config, st store.Store, kv session.KV) *pane.Manager {
	return pane.NewManager(st, editor.NewRegistry(), kv, pane.Config{
		MaxOpen:       cfg.MaxPanes,
		AutosaveDelay: cfg.AutosaveDelay(),
		EditDelay:     cfg.EditSyncDelay(),
		MirrorDelay:   cfg.MirrorSyncDelay(),
		DefaultWidth:  cfg.PaneWidth,
	})
}

// OverrideServer repoints the store, manager, and index at a different
// backend for this invocation only; the configured URL on disk is left
// alone.
func (s *State) OverrideServer(url string) {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" || url == s.Config.ServerURL {
		return
	}

	s.Config.ServerURL = url
	s.Store = newStore(s.Config)
	s.Manager = newManager(s.Config, s.Store, s.KV)
	s.Index = docindex.New()
}

// RefreshIndex rebuilds the document index from the backend listing.
func (s *State) RefreshIndex(ctx context.Context) error {
	entries, err := s.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	s.Index.Replace(entries)
	return nil
}

func GetHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory. err: %s", err)
	}

	return home, nil
}

func LoadConfig(home string) (*config.Config, error) {
	viper.AddConfigPath(home + constants.ConfigDir)
	viper.SetConfigName(constants.ConfigFile)
	viper.SetConfigType(constants.ConfigFileType)
	viper.ReadInConfig()

	err := config.EnsureConfigExists(home)
	if err != nil {
		return nil, err
	}

	return config.Load(home)
}
