package config

import "github.com/spf13/viper"

type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	AuthBaseURL    string `mapstructure:"AUTH_BASE_URL"`
	Transport      string `mapstructure:"TRANSPORT"`
	MQTTBroker     string `mapstructure:"MQTT_BROKER"`
	MQTTTopic      string `mapstructure:"MQTT_TOPIC"`
	MQTTClientID   string `mapstructure:"MQTT_CLIENT_ID"`
	WSEndpoint     string `mapstructure:"WS_ENDPOINT"`
	TokenStore     string `mapstructure:"TOKEN_STORE"`
	TokenFile      string `mapstructure:"TOKEN_FILE"`
	TokenSecret    string `mapstructure:"TOKEN_SECRET"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	GPSSerialPort  string `mapstructure:"GPS_SERIAL_PORT"`
	GPSBaudRate    int    `mapstructure:"GPS_BAUD_RATE"`
	SampleInterval int    `mapstructure:"SAMPLE_INTERVAL_SECONDS"`
	VehicleID      string `mapstructure:"VEHICLE_ID"`
}

func Load() Config {
	viper.AutomaticEnv()
	viper.SetDefault("SERVER_PORT", ":8090")
	viper.SetDefault("AUTH_BASE_URL", "https://api.fleettrack.example.com")
	viper.SetDefault("TRANSPORT", "mqtt")
	viper.SetDefault("MQTT_BROKER", "tcp://localhost:1883")
	viper.SetDefault("MQTT_TOPIC", "fleettrack/locations")
	viper.SetDefault("MQTT_CLIENT_ID", "fleettrack-agent")
	viper.SetDefault("WS_ENDPOINT", "ws://localhost:3000/tracking")
	viper.SetDefault("TOKEN_STORE", "file")
	viper.SetDefault("TOKEN_FILE", "fleettrack-token.bin")
	viper.SetDefault("TOKEN_SECRET", "dev-secret-change-me")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("GPS_SERIAL_PORT", "/dev/serial0")
	viper.SetDefault("GPS_BAUD_RATE", 9600)
	viper.SetDefault("SAMPLE_INTERVAL_SECONDS", 5)
	viper.SetDefault("VEHICLE_ID", "")

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 5
	}
	return cfg
}
