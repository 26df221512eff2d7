package main

import (
	"context"
	"fmt"
	"sync"

	"htnadmin/internal/api"
	"htnadmin/internal/calllist"
	"htnadmin/internal/config"
	"htnadmin/internal/events"
	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
	"htnadmin/internal/session"
	"htnadmin/internal/store"
)

// app is everything a command needs, wired from config.
type app struct {
	cfg       *config.Config
	cfgPath   string
	store     *store.LocalStore
	client    *api.Client
	session   *session.Manager
	publisher events.Publisher
	recorder  journal.Recorder
}

// openApp loads config and opens the local store, API client, session,
// and event publisher.
func openApp(ctx context.Context, path string) (*app, error) {
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := logging.Initialize(cfg.Logging.Options()); err != nil {
		return nil, err
	}
	logging.Boot("Config loaded from %s", path)

	st, err := store.NewLocalStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	client := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.GetRequestTimeout()),
		api.WithUserAgent(cfg.API.UserAgent))
	sm := session.New(client, st)
	sm.Bind(client)
	if _, err := sm.Init(); err != nil {
		st.Close()
		return nil, err
	}

	pub, err := events.FromConfig(ctx, cfg.Events)
	if err != nil {
		st.Close()
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		cfgPath:   path,
		store:     st,
		client:    client,
		session:   sm,
		publisher: pub,
		recorder:  journal.WithActor(journal.Multi{st, pub}, sm.Email),
	}
	a.journalSession()
	return a, nil
}

// journalSession records sign-ins and sign-outs.
func (a *app) journalSession() {
	var mu sync.Mutex
	prev := a.session.State()
	email := a.session.Email()
	a.session.OnChange(func(st session.State) {
		mu.Lock()
		was, who := prev, email
		prev = st
		if e := a.session.Email(); e != "" {
			email = e
		}
		mu.Unlock()

		switch {
		case st == session.Authenticated && was != session.Authenticated:
			act := journal.New(journal.KindLogin, "", 0, "Signed in")
			act.Actor = a.session.Email()
			a.record(act)
		case st == session.Anonymous && was == session.Authenticated:
			act := journal.New(journal.KindLogout, "", 0, "Signed out")
			act.Actor = who
			a.record(act)
		}
	})
}

func (a *app) record(act journal.Action) {
	if err := a.recorder.Record(context.Background(), act); err != nil {
		logging.Get(logging.CategoryStore).Warn("Failed to journal %s: %v", act.Kind, err)
	}
}

func (a *app) callList() *calllist.Controller {
	return calllist.New(a.client, calllist.WithRecorder(a.recorder))
}

// Close releases the publisher, the store, and the log files.
func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		logging.EventsError("Failed to close publisher: %v", err)
	}
	if err := a.store.Close(); err != nil {
		logging.StoreError("Failed to close store: %v", err)
	}
	logging.CloseAll()
}
