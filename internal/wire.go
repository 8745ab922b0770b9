//go:build wireinject
// +build wireinject

package internal

import (
	"net/http"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/config"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/handler"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/repo"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/scraper"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/service"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/telegram"
)

const (
	telegramHTTPTimeout = 10 * time.Second

	defaultTwseBaseURL   = "https://www.twse.com.tw"
	defaultTpexBaseURL   = "https://www.tpex.org.tw"
	defaultTaifexBaseURL = "https://www.taifex.com.tw"
	defaultHolidayAPIURL = "https://staging.data.ntpc.gov.tw/api/datasets/308dcd75-6434-45bc-a95f-584da4fed251/json"
)

var (
	handlerSet = wire.NewSet(
		handler.NewTickerHandler,
		handler.NewAnalysisHandler,
		handler.NewAdminHandler,
	)

	repoSet = wire.NewSet(
		repo.NewTickerRepo,
		repo.NewMarketStatsRepo,
		repo.NewTechnicalIndicatorRepo,
	)

	scraperSet = wire.NewSet(
		provideTwseClient,
		provideTpexClient,
		provideTaifexClient,
		wire.Bind(new(service.TwseFetcher), new(*scraper.TwseClient)),
		wire.Bind(new(service.TwseMarketFetcher), new(*scraper.TwseClient)),
		wire.Bind(new(service.TpexFetcher), new(*scraper.TpexClient)),
		wire.Bind(new(service.TaifexFetcher), new(*scraper.TaifexClient)),
	)

	serviceSet = wire.NewSet(
		provideHolidayService,
		service.NewCalendarService,
		provideTickerService,
		provideMarketStatsService,
		service.NewAnalysisService,
		service.NewFullUpdateRunner,
		wire.Bind(new(service.DateRunner), new(*service.FullUpdateRunner)),
		provideBackfillService,
		service.NewScheduler,
	)
)

// InitializeApp 初始化應用元件
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		repoSet,
		scraperSet,
		serviceSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}

func scraperTimeout(conf *config.Config) time.Duration {
	if conf.Scraper.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(conf.Scraper.TimeoutSeconds) * time.Second
}

func provideTwseClient(conf *config.Config) *scraper.TwseClient {
	baseURL := conf.Scraper.TwseBaseURL
	if baseURL == "" {
		baseURL = defaultTwseBaseURL
	}
	return scraper.NewTwseClient(baseURL, scraperTimeout(conf))
}

func provideTpexClient(conf *config.Config) *scraper.TpexClient {
	baseURL := conf.Scraper.TpexBaseURL
	if baseURL == "" {
		baseURL = defaultTpexBaseURL
	}
	return scraper.NewTpexClient(baseURL, scraperTimeout(conf))
}

func provideTaifexClient(conf *config.Config) *scraper.TaifexClient {
	baseURL := conf.Scraper.TaifexBaseURL
	if baseURL == "" {
		baseURL = defaultTaifexBaseURL
	}
	return scraper.NewTaifexClient(baseURL, scraperTimeout(conf))
}

func provideHolidayService(conf *config.Config, logger *zap.Logger) *service.HolidayService {
	apiURL := conf.Holiday.APIURL
	if apiURL == "" {
		apiURL = defaultHolidayAPIURL
	}
	return service.NewHolidayService(apiURL, logger)
}

func provideTickerService(twse service.TwseFetcher, tpex service.TpexFetcher, tickerRepo *repo.TickerRepo,
	calendar *service.CalendarService, holidays *service.HolidayService,
	conf *config.Config, logger *zap.Logger) *service.TickerService {
	groupDelay := time.Duration(conf.Scraper.GroupDelayMs) * time.Millisecond
	return service.NewTickerService(twse, tpex, tickerRepo, calendar, holidays, groupDelay, logger)
}

func provideMarketStatsService(twse service.TwseMarketFetcher, taifex service.TaifexFetcher,
	statsRepo *repo.MarketStatsRepo, calendar *service.CalendarService, holidays *service.HolidayService,
	conf *config.Config, logger *zap.Logger) *service.MarketStatsService {
	taskDelay := time.Duration(conf.Scraper.TaskDelayMs) * time.Millisecond
	return service.NewMarketStatsService(twse, taifex, statsRepo, calendar, holidays, taskDelay, logger)
}

func provideBackfillService(runner service.DateRunner, holidays *service.HolidayService,
	analysis *service.AnalysisService, conf *config.Config, logger *zap.Logger) *service.BackfillService {
	dateDelay := time.Duration(conf.Scraper.DateDelayMs) * time.Millisecond
	return service.NewBackfillService(runner, holidays, analysis, dateDelay, logger)
}

// provideTelegram 未啟用時回傳 nil
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Token:  conf.Telegram.Token,
		ChatID: conf.Telegram.ChatID,
		Client: httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return tg
}
