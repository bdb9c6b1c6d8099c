package http

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/dropwire/dropwire/service"
	"github.com/dropwire/dropwire/transport/wire"
)

// SetupRouter sets up the Gin router: the wire endpoints behind the
// client-key middleware, plus the well-known self-ident document.
func SetupRouter(
	cfg service.Config,
	signup *service.SignupService,
	phonebook *service.PhonebookService,
	log *slog.Logger,
) (*gin.Engine, error) {
	if log == nil {
		log = slog.Default()
	}

	signupDispatcher, err := wire.NewDispatcher("signup", log, wire.Route{
		State: wire.StateRoot,
		Verb:  "signup",
		Next:  wire.StateClosed,
		Handler: func(ctx context.Context, conn wire.Conn, body json.RawMessage) error {
			return signup.HandleSignup(ctx, conn, body)
		},
	})
	if err != nil {
		return nil, err
	}

	phonebookDispatcher, err := wire.NewDispatcher("phonebook", log, wire.Route{
		State: wire.StateRoot,
		Verb:  "listPeeps",
		Next:  wire.StateClosed,
		Handler: func(ctx context.Context, conn wire.Conn, body json.RawMessage) error {
			return phonebook.HandleListPeeps(ctx, conn, body)
		},
	})
	if err != nil {
		return nil, err
	}

	router := gin.Default()

	handlers := NewWireHandlers(map[string]*wire.Dispatcher{
		"signup":    signupDispatcher,
		"phonebook": phonebookDispatcher,
	}, log)

	wireGroup := router.Group("/wire")
	wireGroup.Use(RequireClientKey())
	{
		wireGroup.POST("/:endpoint", handlers.Dispatch)
	}

	router.GET("/.well-known/"+cfg.ServerName+"-server.selfident.json",
		SelfIdentDocument(cfg.SelfIdentBlob))

	return router, nil
}
