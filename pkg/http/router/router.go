package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/lintang-b-s/olrwebtool/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/olrwebtool/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/olrwebtool/pkg/http/server"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type API struct {
	log *zap.Logger
}

func NewAPI(log *zap.Logger) *API {
	return &API{log: log}
}

// Handler wires the routes and the middleware chain. rateLimit is in requests per second per
// client, 0 disables it.
func (api *API) Handler(
	timeout time.Duration,
	rateLimit float64,
	decodeService controllers.DecodeService,
	networkService controllers.NetworkService,
	analysisService controllers.AnalysisService,
) http.Handler {
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	group := router_helper.NewRouteGroup(router, "/api")

	openlrRoutes := controllers.New(decodeService, networkService, analysisService, api.log)
	openlrRoutes.Routes(group)
	openlrRoutes.HealthRoutes(router)

	mwChain := []alice.Constructor{corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP, Logger(api.log), Timeout(timeout)}
	if rateLimit > 0 {
		mwChain = append(mwChain, Limit(rateLimit))
	}
	return alice.New(mwChain...).Then(router)
}

func (api *API) Run(
	ctx context.Context,
	config http_server.Config,
	rateLimit float64,
	decodeService controllers.DecodeService,
	networkService controllers.NetworkService,
	analysisService controllers.AnalysisService,
) error {
	api.log.Info("Run httprouter API")

	handler := api.Handler(config.Timeout, rateLimit, decodeService, networkService, analysisService)
	srv := http_server.New(ctx, handler, config)
	api.log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		api.log.Info("HTTP server stopped", zap.Error(err))
		return err
	case <-ctx.Done():
		api.log.Info("Context canceled, shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
