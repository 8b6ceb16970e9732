package config

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"` // MySQL DSN
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Env            string                `yaml:"env"` // "development" | "production"
	Paths          RuntimePathsConfig    `yaml:"paths"`
	LogRotateSize  *int                  `yaml:"log_rotate_size_mb"`
	LogRotateKeep  *int                  `yaml:"log_rotate_keep"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Timezone       string                `yaml:"timezone"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type RuntimePathsConfig struct {
	Logs     string `yaml:"logs"`
	Archives string `yaml:"archives"`
}

type rawAppConfig struct {
	Port               int               `yaml:"port"`
	DSN                string            `yaml:"dsn"`
	DatabaseURL        string            `yaml:"database_url"`
	RedisURL           string            `yaml:"redis_url"`
	Database           rawDatabaseConfig `yaml:"database"`
	Redis              rawRedisConfig    `yaml:"redis"`
	DBHost             string            `yaml:"db_host"`
	DBPort             int               `yaml:"db_port"`
	DBUser             string            `yaml:"db_user"`
	DBPassword         string            `yaml:"db_password"`
	DBName             string            `yaml:"db_name"`
	DBCharset          string            `yaml:"db_charset"`
	DBLoc              string            `yaml:"db_loc"`
	DBParseTime        *bool             `yaml:"db_parse_time"`
	RedisHost          string            `yaml:"redis_host"`
	RedisPort          int               `yaml:"redis_port"`
	RedisUsername      string            `yaml:"redis_username"`
	RedisPassword      string            `yaml:"redis_password"`
	RedisDB            *int              `yaml:"redis_db"`
	RedisTLS           *bool             `yaml:"redis_tls"`
	Env                string            `yaml:"env"`
	Paths              rawPathsConfig    `yaml:"paths"`
	LogDir             string            `yaml:"log_dir"`
	LogsDir            string            `yaml:"logs_dir"`
	LogRotateSize      *int              `yaml:"log_rotate_size_mb"`
	LogRotateKeep      *int              `yaml:"log_rotate_keep"`
	ArchiveDir         string            `yaml:"archive_dir"`
	ArchivesDir        string            `yaml:"archives_dir"`
	BackupDir          string            `yaml:"backup_dir"`
	AllowedOrigins     []string          `yaml:"allowed_origins"`
	CORSAllowedOrigins []string          `yaml:"cors_allowed_origins"`
	JWTSecret          string            `yaml:"jwt_secret"`
	JWTSecretLegacy    string            `yaml:"jwtsecret"`
	Timezone           string            `yaml:"timezone"`
	TimeZone           string            `yaml:"time_zone"`
	TZ                 string            `yaml:"tz"`
}

type rawDatabaseConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type rawPathsConfig struct {
	Logs     string `yaml:"logs"`
	Archives string `yaml:"archives"`
	Backups  string `yaml:"backups"`
}

// FullConfig is the application config stored in the database (options table, key="configs").
type FullConfig struct {
	Site           SiteOptions       `json:"site"`
	URL            URLConfig         `json:"url"`
	Discovery      DiscoveryOptions  `json:"discovery"`
	Generation     GenerationOptions `json:"generation"`
	AI             AIConfig          `json:"ai"`
	ArchiveOptions ArchiveOptions    `json:"archive_options"`
	S3Options      S3Options         `json:"s3_options"`
	BarkOptions    BarkOptions       `json:"bark_options"`
	AuthSecurity   AuthSecurity      `json:"auth_security"`
	FeatureList    FeatureList       `json:"feature_list"`
}

type SiteOptions struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

type URLConfig struct {
	WebURL    string `json:"web_url"`
	AdminURL  string `json:"admin_url"`
	ServerURL string `json:"server_url"`
}

// DiscoveryOptions configures the keyword volume/suggestion provider and the
// discovery engine thresholds.
type DiscoveryOptions struct {
	Endpoint              string `json:"endpoint"`
	Login                 string `json:"login"`
	Password              string `json:"password"`
	LanguageCode          string `json:"language_code"`
	LocationCode          int    `json:"location_code"`
	MinSearchVolume       int    `json:"min_search_volume"`
	MaxKeywordsPerRequest int    `json:"max_keywords_per_request"`
	ExpansionTriggerCount int    `json:"expansion_trigger_count"`
	APITimeoutMS          int    `json:"api_timeout_ms"`
	SuggestionLimit       int    `json:"suggestion_limit"`
	SuggestionVolumeBase  int    `json:"suggestion_volume_base"`
	MaxKeywordLength      int    `json:"max_keyword_length"`
	DifficultyScript      string `json:"difficulty_script"`
	StaleSetRetentionDays int    `json:"stale_set_retention_days"`
}

// GenerationOptions configures retry behavior of the AI generation engine.
type GenerationOptions struct {
	MaxRetries              int  `json:"max_retries"`
	BaseDelayMS             int  `json:"base_delay_ms"`
	MaxOutputTokens         int  `json:"max_output_tokens"`
	EnableHeuristicFallback bool `json:"enable_heuristic_fallback"`
}

type ArchiveOptions struct {
	Enable bool   `json:"enable"`
	Path   string `json:"path"`
}

type S3Options struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	CustomDomain    string `json:"custom_domain"`
	PathStyleAccess bool   `json:"path_style_access"`
}

type BarkOptions struct {
	Enable              bool   `json:"enable"`
	Key                 string `json:"key"`
	ServerURL           string `json:"server_url"`
	EnableLoginAlert    bool   `json:"enable_login_alert"`
	EnableThrottleGuard bool   `json:"enable_throttle_guard"`
}

type AuthSecurity struct {
	SessionTTLDays       int  `json:"session_ttl_days"`
	DisablePasswordLogin bool `json:"disable_password_login"`
}

type FeatureList struct {
	EnableDiscovery  bool `json:"enable_discovery"`
	EnableGeneration bool `json:"enable_generation"`
}

type AIConfig struct {
	Providers    []AIProvider       `json:"providers"`
	PersonaModel *AIModelAssignment `json:"persona_model,omitempty"`
	TitleModel   *AIModelAssignment `json:"title_model,omitempty"`
	KeywordModel *AIModelAssignment `json:"keyword_model,omitempty"`
	BlogModel    *AIModelAssignment `json:"blog_model,omitempty"`
}

type AIModelAssignment struct {
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`
}

type AIProvider struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"` // OpenAI | OpenAI-Compatible | Anthropic | OpenRouter
	APIKey       string `json:"api_key"`
	Endpoint     string `json:"endpoint,omitempty"`
	DefaultModel string `json:"default_model"`
	Enabled      bool   `json:"enabled"`
}
