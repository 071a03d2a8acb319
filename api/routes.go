package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rh "github.com/tobyhart/deckpress/route-handlers"
	"github.com/tobyhart/deckpress/webutil"
)

const (
	apiBasePath      = "/api"
	usersBasePath    = "/users"
	articlesBasePath = "/articles"
	postsBasePath    = "/posts"
)

const (
	carouselSubPath   = "/carousel"
	scheduleSubPath   = "/schedule"
	connectionSubPath = "/connection"
)

const (
	paramID          = "id"
	paramSlideNumber = "slideNumber"
	paramVersionID   = "versionId"
)

func SetupRoutes(
	userHandler *rh.UserHandler,
	articleHandler *rh.ArticleHandler,
	carouselHandler *rh.CarouselHandler,
	scheduleHandler *rh.ScheduleHandler,
	connectionHandler *rh.ConnectionHandler,
	postHandler *rh.PostHandler,
	schedulerTick http.HandlerFunc,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(RequestID)
	r.Use(RealIP)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(SetHeader(webutil.HeaderContentType, webutil.ContentTypeJSONUTF8))

	r.Route(apiBasePath, func(r chi.Router) {
		configureUserRoutes(r, userHandler, connectionHandler)
		configureArticleRoutes(r, articleHandler, carouselHandler, scheduleHandler)
		configurePostRoutes(r, postHandler)
	})

	// Cron entry point, outside the API prefix so the scheduler service
	// can be routed separately.
	r.Post("/scheduler/tick", schedulerTick)

	// Health check endpoint
	r.Get("/healthz", handleHealthCheck)

	return r
}

// Helper for constructing paths with a parameter
func pathWithParam(basePath string, paramName string) string {
	if basePath == "" {
		return "/{" + paramName + "}"
	}
	return basePath + "/{" + paramName + "}"
}

// --- User Routes ---
func configureUserRoutes(r chi.Router, userHandler *rh.UserHandler, connectionHandler *rh.ConnectionHandler) {
	userSpecificPath := pathWithParam("", paramID)

	r.Route(usersBasePath, func(r chi.Router) {
		r.Post("/", webutil.MakeHandler(userHandler.HandleCreateUser))
		r.Route(userSpecificPath, func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(userHandler.HandleGetUser))
			// Platform connection for a specific user
			r.Put(connectionSubPath, webutil.MakeHandler(connectionHandler.HandleUpsertConnection))
			r.Get(connectionSubPath, webutil.MakeHandler(connectionHandler.HandleGetConnection))
		})
	})
}

// --- Article + Carousel Routes ---
func configureArticleRoutes(r chi.Router, articleHandler *rh.ArticleHandler, carouselHandler *rh.CarouselHandler, scheduleHandler *rh.ScheduleHandler) {
	articleSpecificPath := pathWithParam("", paramID)
	slideSpecificPath := "/slides" + pathWithParam("", paramSlideNumber)

	r.Route(articlesBasePath, func(r chi.Router) {
		r.Post("/", webutil.MakeHandler(articleHandler.HandleCreateArticle))
		r.Route(articleSpecificPath, func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(articleHandler.HandleGetArticle))
			r.Put(scheduleSubPath, webutil.MakeHandler(articleHandler.HandleUpdateArticleSchedule))

			// Carousel pipeline for an article
			r.Route(carouselSubPath, func(r chi.Router) {
				r.Get("/", webutil.MakeHandler(carouselHandler.HandleGetCarousel))
				r.Delete("/", webutil.MakeHandler(carouselHandler.HandleDeleteCarousel))
				r.Post("/generate", webutil.MakeHandler(carouselHandler.HandleGenerate))

				// Per-slide operations
				r.Route(slideSpecificPath, func(r chi.Router) {
					r.Post("/regenerate", webutil.MakeHandler(carouselHandler.HandleRegenerateSlide))
					r.Get("/versions", webutil.MakeHandler(carouselHandler.HandleListVersions))
					r.Post("/versions"+pathWithParam("", paramVersionID)+"/activate", webutil.MakeHandler(carouselHandler.HandleActivateVersion))
				})

				// Schedule coupling to the parent article
				r.Post(scheduleSubPath, webutil.MakeHandler(scheduleHandler.HandleSchedule))
				r.Delete(scheduleSubPath, webutil.MakeHandler(scheduleHandler.HandleUnschedule))
				r.Get(scheduleSubPath, webutil.MakeHandler(scheduleHandler.HandleGetSchedule))
			})
		})
	})
}

// --- Standalone Post Routes ---
func configurePostRoutes(r chi.Router, handler *rh.PostHandler) {
	r.Post(postsBasePath, webutil.MakeHandler(handler.HandleCreatePost))
}

// --- Utility Functions ---

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// SetHeader is a middleware to set a response header.
func SetHeader(key, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(key, value)
			next.ServeHTTP(w, r)
		})
	}
}
