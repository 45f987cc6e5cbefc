package pkg

import (
	"context"
	"errors"
	"net/http"

	"PlannerEdu/internal/auth"
	"PlannerEdu/internal/bootstrap"
	"PlannerEdu/internal/calendar"
	"PlannerEdu/internal/config"
	"PlannerEdu/internal/mail"
	"PlannerEdu/internal/notification"
	"PlannerEdu/pkg/middleware"

	"github.com/casbin/casbin/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var ConfigModules = fx.Module("config",
	fx.Provide(config.NewAppConfig),
	fx.Provide(config.NewStoreConfig),
	fx.Provide(config.NewEmailConfig),
	fx.Provide(config.NewSchedulerConfig),
	fx.Provide(bootstrap.NewLogger),
)

var NotificationModules = fx.Module("notification",
	fx.Provide(NewNotificationStore),
	fx.Provide(notification.NewNotificationRepository),
	fx.Provide(notification.NewNotificationService),
	fx.Provide(NewTriggers),
	fx.Provide(NewMetrics),
	fx.Provide(mail.NewSender),
	fx.Provide(auth.NewUserRepository),
	fx.Provide(calendar.NewEventRepository),
	fx.Provide(calendar.NewClassRepository),
	fx.Provide(
		func(s mail.Sender) notification.Mailer { return s },
		func(r *auth.UserRepository) notification.UserDirectory { return r },
		func(r *calendar.EventRepository) notification.EventProvider { return r },
		func(r *calendar.ClassRepository) notification.RosterProvider { return r },
	),
	fx.Provide(NewDispatcher),
	fx.Provide(NewPlanner),
	fx.Provide(NewScheduler),
	fx.Invoke(notification.RegisterScheduler),
)

var EchoModules = fx.Module("echo",
	fx.Provide(middleware.NewEnforcer),
	fx.Provide(NewNotificationHandler),
	fx.Provide(NewEchoServer),
	fx.Invoke(RegisterRoutes),
)

// Options is the whole application graph.
func Options() fx.Option {
	return fx.Options(
		ConfigModules,
		NotificationModules,
		EchoModules,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
}

// NewNotificationStore picks the backend named by STORE_DRIVER.
func NewNotificationStore(lc fx.Lifecycle, storeCfg *config.StoreConfig, appCfg *config.AppConfig, log *zap.Logger) (notification.Store, error) {
	switch storeCfg.Driver {
	case config.StoreDriverMongo:
		db, err := config.NewMongoDatabase(lc, storeCfg, log)
		if err != nil {
			return nil, err
		}
		return notification.NewMongoStore(db), nil
	default:
		path := appCfg.DataFile("notifications.json")
		log.Info("using file notification store", zap.String("path", path))
		return notification.NewFileStore(path), nil
	}
}

func NewMetrics() *notification.Metrics {
	return notification.NewMetrics(prometheus.DefaultRegisterer)
}

func NewTriggers(
	service *notification.NotificationService,
	roster notification.RosterProvider,
	cfg *config.SchedulerConfig,
	log *zap.Logger,
) *notification.Triggers {
	return notification.NewTriggers(service, roster, log, cfg.Location)
}

func NewDispatcher(
	repo *notification.NotificationRepository,
	service *notification.NotificationService,
	directory notification.UserDirectory,
	mailer notification.Mailer,
	metrics *notification.Metrics,
	cfg *config.SchedulerConfig,
	log *zap.Logger,
) *notification.Dispatcher {
	return notification.NewDispatcher(repo, service, directory, mailer, metrics, log, notification.DispatcherOptions{
		OpsUserID: cfg.OpsUserID,
	})
}

func NewPlanner(
	repo *notification.NotificationRepository,
	service *notification.NotificationService,
	events notification.EventProvider,
	roster notification.RosterProvider,
	metrics *notification.Metrics,
	cfg *config.SchedulerConfig,
	log *zap.Logger,
) *notification.Planner {
	return notification.NewPlanner(repo, service, events, roster, metrics, log, cfg.Location)
}

func NewScheduler(
	dispatcher *notification.Dispatcher,
	planner *notification.Planner,
	metrics *notification.Metrics,
	cfg *config.SchedulerConfig,
	log *zap.Logger,
) *notification.NotificationScheduler {
	return notification.NewNotificationScheduler(dispatcher, planner, notification.SchedulerOptions{
		QueueInterval:  cfg.QueueInterval,
		ReminderHour:   cfg.ReminderHour,
		ReminderMinute: cfg.ReminderMinute,
		Location:       cfg.Location,
		PlanOnStart:    cfg.PlanOnStart,
	}, metrics, log)
}

func NewNotificationHandler(
	service *notification.NotificationService,
	dispatcher *notification.Dispatcher,
	planner *notification.Planner,
	log *zap.Logger,
) *notification.NotificationHandler {
	return notification.NewNotificationHandler(service, dispatcher, planner, log)
}

func NewEchoServer(lc fx.Lifecycle, cfg *config.AppConfig, log *zap.Logger) *echo.Echo {
	log = log.Named("server")
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	addr := ":" + cfg.Port
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("server running", zap.String("addr", addr))
			go func() {
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("failed to start the server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down the server")
			return e.Shutdown(ctx)
		},
	})
	return e
}

func RegisterRoutes(e *echo.Echo, cfg *config.AppConfig, enforcer *casbin.Enforcer, h *notification.NotificationHandler, log *zap.Logger) {
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	protected := e.Group("/api/notifications")
	protected.Use(middleware.JWTMiddleware(cfg.JWTKey, log.Named("jwt")))
	protected.Use(middleware.CasbinMiddleware(enforcer, log.Named("rbac")))

	protected.GET("", h.List)
	protected.PUT("/:id/read", h.MarkAsRead)
	protected.PUT("/read-all", h.MarkAllAsRead)
	protected.POST("", h.Create)
	protected.GET("/settings", h.GetSettings)
	protected.PUT("/settings", h.UpdateSettings)
	protected.POST("/dispatch", h.Dispatch)
	protected.POST("/reminders", h.PlanReminders)
}
