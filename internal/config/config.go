package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/nseetl/internal/core"
	"github.com/spf13/viper"
)

// DateLayout is the exchange's dd-Mon-yyyy date format
const DateLayout = "02-Jan-2006"

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Source    SourceConfig    `mapstructure:"source"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Sectors   []SectorIndex   `mapstructure:"sectors"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Transform TransformConfig `mapstructure:"transform"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type LogConfig struct {
	Development bool     `mapstructure:"development"`
	Level       string   `mapstructure:"level"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// SourceConfig describes the remote exchange endpoints
type SourceConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	ArchiveURL string        `mapstructure:"archive_url"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// PathsConfig holds storage-relative locations of raw and derived tables.
type PathsConfig struct {
	SectorSnapshot  string `mapstructure:"sector_snapshot"`
	HolidayCalendar string `mapstructure:"holiday_calendar"`
	BhavDir         string `mapstructure:"bhav_dir"`
	MADir           string `mapstructure:"ma_dir"`
	InterimDir      string `mapstructure:"interim_dir"`
	ProcessedDir    string `mapstructure:"processed_dir"`
}

// SectorIndex maps a sector name to the source's index query parameter.
// Param is used verbatim in the URL and must already be escaped.
type SectorIndex struct {
	Name  string `mapstructure:"name"`
	Param string `mapstructure:"param"`
}

type CalendarConfig struct {
	MIC             string `mapstructure:"mic"` // offline fallback calendar (ISO 10383)
	MaxLookbackDays int    `mapstructure:"max_lookback_days"`
}

type FetchConfig struct {
	BackfillStart   string `mapstructure:"backfill_start"` // dd-Mon-yyyy
	PreviousDay     bool   `mapstructure:"previous_day"`
	RefreshCalendar bool   `mapstructure:"refresh_calendar"`
}

type TransformConfig struct {
	CuratedSectors []string       `mapstructure:"curated_sectors"`
	MA             MALayoutConfig `mapstructure:"ma"`
}

// MALayoutConfig describes the fixed block of the market-activity report.
type MALayoutConfig struct {
	SkipLines   int `mapstructure:"skip_lines"`
	FirstColumn int `mapstructure:"first_column"`
	ColumnCount int `mapstructure:"column_count"`
	RowCount    int `mapstructure:"row_count"`
}

type WarehouseConfig struct {
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Workbook WorkbookConfig `mapstructure:"workbook"`
}

type SQLiteConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type WorkbookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Name    string `mapstructure:"name"` // storage-relative
}

type ScheduleConfig struct {
	Spec     string `mapstructure:"spec"` // cron spec with seconds field
	Timezone string `mapstructure:"timezone"`
}

type MetricsConfig struct {
	Listen   string `mapstructure:"listen"`
	Path     string `mapstructure:"path"`
	Textfile string `mapstructure:"textfile"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("NSEETL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	// Lists replace the defaults instead of merging element-wise
	if v.IsSet("sectors") {
		cfg.Sectors = nil
	}
	if v.IsSet("transform.curated_sectors") {
		cfg.Transform.CuratedSectors = nil
	}
	if v.IsSet("log.output_paths") {
		cfg.Log.OutputPaths = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Source: SourceConfig{
			BaseURL:    "https://www.nseindia.com",
			ArchiveURL: "https://archives.nseindia.com",
			UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
			Timeout:    30 * time.Second,
		},
		Storage: StorageConfig{
			Type: "localfs",
			Path: "data",
		},
		Paths: PathsConfig{
			SectorSnapshot:  "raw/sector_list/combined_data.csv",
			HolidayCalendar: "raw/holiday_data/trading_holiday.csv",
			BhavDir:         "raw/sec_bhavdata_full",
			MADir:           "raw/ma_report",
			InterimDir:      "interim",
			ProcessedDir:    "processed",
		},
		Sectors: DefaultSectors(),
		Calendar: CalendarConfig{
			MIC:             "xnse",
			MaxLookbackDays: 30,
		},
		Fetch: FetchConfig{
			BackfillStart:   "01-Apr-2023",
			PreviousDay:     true,
			RefreshCalendar: false,
		},
		Transform: TransformConfig{
			CuratedSectors: []string{"NIFTY 50", "NIFTY NEXT 50", "NIFTY MIDCAP 50"},
			MA: MALayoutConfig{
				SkipLines:   8,
				FirstColumn: 1,
				ColumnCount: 7,
				RowCount:    71,
			},
		},
		Warehouse: WarehouseConfig{
			SQLite:   SQLiteConfig{Path: "data/warehouse/nse.db"},
			Workbook: WorkbookConfig{Name: "processed/star_schema.xlsx"},
		},
		Schedule: ScheduleConfig{
			Spec:     "0 30 18 * * 1-5",
			Timezone: "Asia/Kolkata",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// DefaultSectors returns the NIFTY sector indices tracked by default.
func DefaultSectors() []SectorIndex {
	return []SectorIndex{
		{Name: "NIFTY 50", Param: "NIFTY%2050"},
		{Name: "NIFTY NEXT 50", Param: "NIFTY%20NEXT%2050"},
		{Name: "NIFTY MIDCAP 50", Param: "NIFTY%20MIDCAP%2050"},
		{Name: "NIFTY AUTO", Param: "NIFTY%20AUTO"},
		{Name: "NIFTY BANK", Param: "NIFTY%20BANK"},
		{Name: "NIFTY ENERGY", Param: "NIFTY%20ENERGY"},
		{Name: "NIFTY FIN SERVICE", Param: "NIFTY%20FINANCIAL%20SERVICES"},
		{Name: "NIFTY FMCG", Param: "NIFTY%20FMCG"},
		{Name: "NIFTY IT", Param: "NIFTY%20IT"},
		{Name: "NIFTY MEDIA", Param: "NIFTY%20MEDIA"},
		{Name: "NIFTY METAL", Param: "NIFTY%20METAL"},
		{Name: "NIFTY PHARMA", Param: "NIFTY%20PHARMA"},
		{Name: "NIFTY PSU BANK", Param: "NIFTY%20PSU%20BANK"},
		{Name: "NIFTY REALTY", Param: "NIFTY%20REALTY"},
		{Name: "NIFTY PVT BANK", Param: "NIFTY%20PRIVATE%20BANK"},
		{Name: "NIFTY HEALTHCARE", Param: "NIFTY%20HEALTHCARE%20INDEX"},
		{Name: "NIFTY CONSR DURBL", Param: "NIFTY%20CONSUMER%20DURABLES"},
		{Name: "NIFTY OIL AND GAS", Param: "NIFTY%20OIL%20%26%20GAS"},
		{Name: "NIFTY COMMODITIES", Param: "NIFTY%20COMMODITIES"},
		{Name: "NIFTY CONSUMPTION", Param: "NIFTY%20INDIA%20CONSUMPTION"},
		{Name: "NIFTY CPSE", Param: "NIFTY%20CPSE"},
		{Name: "NIFTY INFRA", Param: "NIFTY%20INFRASTRUCTURE"},
		{Name: "NIFTY MNC", Param: "NIFTY%20MNC"},
		{Name: "NIFTY PSE", Param: "NIFTY%20PSE"},
		{Name: "NIFTY SERV SECTOR", Param: "NIFTY%20SERVICES%20SECTOR"},
	}
}

// BackfillStartDate parses Fetch.BackfillStart.
func (c *Config) BackfillStartDate() (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(c.Fetch.BackfillStart))
	if err != nil {
		return time.Time{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backfill_start %q: %w", c.Fetch.BackfillStart, err))
	}
	return t, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Source validation
	if c.Source.BaseURL == "" || c.Source.ArchiveURL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("source base_url and archive_url are required"))
	}
	if c.Source.Timeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("source timeout cannot be negative, got %s", c.Source.Timeout))
	}

	// Storage validation
	switch c.Storage.Type {
	case "localfs":
		if c.Storage.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage path required for localfs"))
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when storage type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("storage type must be localfs or s3, got %q", c.Storage.Type))
	}

	// Sector validation
	if len(c.Sectors) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("at least one sector is required"))
	}
	seen := make(map[string]struct{}, len(c.Sectors))
	for i, s := range c.Sectors {
		if s.Name == "" || s.Param == "" {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("sector %d: name and param are required", i))
		}
		if _, dup := seen[s.Name]; dup {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("duplicate sector %q", s.Name))
		}
		seen[s.Name] = struct{}{}
	}

	if c.Calendar.MaxLookbackDays < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_lookback_days must be positive, got %d", c.Calendar.MaxLookbackDays))
	}

	if _, err := c.BackfillStartDate(); err != nil {
		return err
	}

	if len(c.Transform.CuratedSectors) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("curated_sectors cannot be empty"))
	}
	ma := c.Transform.MA
	if ma.SkipLines < 0 || ma.FirstColumn < 0 || ma.ColumnCount < 1 || ma.RowCount < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("invalid ma layout %+v", ma))
	}

	if c.Warehouse.SQLite.Enabled && c.Warehouse.SQLite.Path == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("sqlite path required when warehouse sqlite is enabled"))
	}

	return nil
}
