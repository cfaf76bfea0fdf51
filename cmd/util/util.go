package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dSM/remote/common"
	"github.com/ValentinKolb/dSM/remote/provider"
	"github.com/ValentinKolb/dSM/remote/provider/tcp"
	"github.com/ValentinKolb/dSM/remote/provider/unix"
	"github.com/ValentinKolb/dSM/remote/serializer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitEnvConfig initializes configuration from environment variables
func InitEnvConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dsm")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetSerializer creates an entry serializer based on configuration
func GetSerializer() (serializer.IEntrySerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// NetworkFor derives the network type from an endpoint string. Endpoints
// that look like filesystem paths select a unix domain socket, everything
// else is treated as a TCP address.
func NetworkFor(endpoint string) string {
	if strings.HasPrefix(endpoint, "/") || strings.HasPrefix(endpoint, "./") {
		return "unix"
	}
	return "tcp"
}

// SetupDispatcherFlags adds common replication link flags to a command
func SetupDispatcherFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "localhost:9000", WrapString("The address of the remote node (e.g. localhost:9000 or /tmp/dsm.sock)"))

	key = "buffer-size"
	cmd.PersistentFlags().Int(key, 1024, WrapString("The size of the shared payload buffer (in KB)"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How often to retry establishing a connection"))

	key = "dial-timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout for a single connection attempt (in seconds)"))
}

// GetDispatcherConfig reads the replication link configuration from viper
func GetDispatcherConfig(name string) common.DispatcherConfig {
	return common.DispatcherConfig{
		Endpoint:          viper.GetString("endpoint"),
		Name:              name,
		BufferSize:        viper.GetInt("buffer-size") * 1024,
		RetryCount:        viper.GetInt("retries"),
		DialTimeoutSecond: viper.GetInt("dial-timeout"),
	}
}

// GetProvider creates a connection provider matching the endpoint's network
func GetProvider(config common.DispatcherConfig) provider.IConnectionProvider {
	if NetworkFor(config.Endpoint) == "unix" {
		return unix.NewUnixProvider(config)
	}
	return tcp.NewTCPProvider(config)
}
