package constants

// Viper configuration keys.
const (
	ViperSecretKey      = "admin.secret"
	ViperKeyAPIKey      = "kosis.api_key"
	ViperKeyBaseURL     = "kosis.base_url"
	ViperKeyListenAddr  = "http.addr"
	ViperKeyPostgresDSN = "postgres.dsn"
	ViperKeySinkPath    = "sink.path"
	ViperKeyChartBucket = "chart.bucket"
	ViperKeyChartRegion = "chart.region"
	ViperKeyChartEndpnt = "chart.endpoint"
	ViperKeyChartDir    = "chart.dir"
)

// EnvKeyAPIKey is checked before the viper store, in that order.
const EnvKeyAPIKey = "KOSIS_API_KEY"

const CookieKeySecretToken = "secret_token"
