package internal

import (
	"fmt"
	"net/http"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/config"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/handler"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/models"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/service"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/telegram"
	"github.com/acronhuang/taiwan-stock-data-collector/pkg/nostd"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewCollectorApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewCollectorApp() orz.Application {
	return &CollectorApp{}
}

var _ orz.Application = (*CollectorApp)(nil)

type AppComponents struct {
	TickerHandler   *handler.TickerHandler
	AnalysisHandler *handler.AnalysisHandler
	AdminHandler    *handler.AdminHandler

	HolidayService     *service.HolidayService
	CalendarService    *service.CalendarService
	TickerService      *service.TickerService
	MarketStatsService *service.MarketStatsService
	AnalysisService    *service.AnalysisService
	BackfillService    *service.BackfillService
	Scheduler          *service.Scheduler

	Telegram *telegram.Telegram
}

type CollectorApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 取得應用元件
func (r *CollectorApp) GetComponents() *AppComponents {
	return r.components
}

func (r *CollectorApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.Ticker{}, models.MarketStats{}, models.TechnicalIndicator{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	api := e.Group("/api")
	{
		if r.components.TickerHandler != nil {
			r.components.TickerHandler.RegisterRoutes(api)
		}
		if r.components.AnalysisHandler != nil {
			r.components.AnalysisHandler.RegisterRoutes(api)
		}
		if r.components.AdminHandler != nil {
			r.components.AdminHandler.RegisterRoutes(api)
		}
	}

	return nil
}

func (r *CollectorApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Taiwan Stock Data Collector Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if components.Telegram != nil {
		components.Scheduler.SetNotifier(components.Telegram)
		components.Telegram.Start()
		logger.Info("Telegram notifier started")
	}

	if r.conf.Scheduler.Enabled {
		if err := components.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %v", err)
		}
	} else {
		logger.Info("排程器未啟用")
	}

	return nil
}
