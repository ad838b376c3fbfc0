package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/config"
	"github.com/Veraticus/spice-ml/internal/engine"
	"github.com/Veraticus/spice-ml/internal/service"
	"github.com/Veraticus/spice-ml/internal/storage"
	"github.com/spf13/viper"
)

// session bundles what every model command needs.
type session struct {
	engine *engine.Engine
	store  service.ArtifactStore
	userID string
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession loads the configuration, opens the artifact store and creates
// the engine for the selected user.
func openSession(ctx context.Context, opts ...engine.Option) (*session, error) {
	userID := strings.TrimSpace(viper.GetString("user.id"))
	if userID == "" {
		return nil, common.NewUserError("a user id is required (--user or SPICEML_USER_ID)", engine.ErrEmptyUserID)
	}
	s, err := openStore(ctx, opts...)
	if err != nil {
		return nil, err
	}
	s.userID = userID
	return s, nil
}

// openStore is openSession for commands that span every user.
func openStore(ctx context.Context, opts ...engine.Option) (*session, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("invalid configuration", err)
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open model store: %w", err)
	}

	return &session{
		engine: engine.New(store, engine.ConfigFrom(cfg), opts...),
		store:  store,
	}, nil
}

// explain turns expected model errors into messages for the terminal.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrInsufficientData):
		return common.NewUserError("not enough transactions to train", err)
	case errors.Is(err, common.ErrNotTrained):
		return common.NewUserError("no trained model for this user; run 'spiceml train' first", err)
	case errors.Is(err, engine.ErrCannotList):
		return common.NewUserError("the configured storage backend cannot list users", err)
	case errors.Is(err, engine.ErrInvalidPeriods):
		return common.NewUserError("--periods must be between 1 and 365", err)
	default:
		return err
	}
}

func jsonOutput() bool {
	return viper.GetBool("output.json")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func closeSession(s *session) {
	if err := s.Close(); err != nil {
		common.LogWarn("Failed to close model store", common.Fields{"error": err.Error()})
	}
}
