package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Dispatcher configuration struct
// --------------------------------------------------------------------------

// DispatcherConfig holds all configuration parameters for the sending side
// of the replication link (connection provider + socket dispatcher).
type DispatcherConfig struct {
	// Endpoint is the address of the remote peer (e.g. "localhost:9000" or "/tmp/dsm.sock")
	Endpoint string
	// Name identifies the dispatcher in log output
	Name string
	// BufferSize is the size of the shared payload buffer in bytes
	BufferSize int
	// RetryCount is how often the provider retries to establish a connection
	RetryCount int
	// DialTimeoutSecond is the timeout for a single connection attempt
	DialTimeoutSecond int
}

// String returns a formatted string representation of the configuration
func (c *DispatcherConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Dispatcher")
	addField("Name", c.Name)
	addField("Endpoint", c.Endpoint)
	addField("Payload Buffer", fmt.Sprintf("%d bytes", c.BufferSize))

	addSection("Connection Provider")
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Dial Timeout", fmt.Sprintf("%d sec", c.DialTimeoutSecond))

	return sb.String()
}

// --------------------------------------------------------------------------
// Receiver configuration struct
// --------------------------------------------------------------------------

// ReceiverConfig holds all configuration parameters for a node that accepts
// inbound replication and applies it to its local shared map.
type ReceiverConfig struct {
	// Endpoint is the address to listen on (e.g. "0.0.0.0:9000" or "/tmp/dsm.sock")
	Endpoint string

	// MirrorDir optionally mirrors every entry into a directory of files ("" = disabled)
	MirrorDir string
	// MirrorDB optionally mirrors every entry into an sqlite database ("" = disabled)
	MirrorDB string
	// MirrorTable is the table name used by the sqlite mirror
	MirrorTable string

	// MetricsEndpoint optionally exposes prometheus metrics via HTTP ("" = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// HasMirror checks if the configuration enables any external mirror
func (c *ReceiverConfig) HasMirror() bool {
	return c.MirrorDir != "" || c.MirrorDB != ""
}

// String returns a formatted string representation of the configuration
func (c *ReceiverConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Receiver")
	addField("Endpoint", c.Endpoint)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	if c.HasMirror() {
		addSection("External Mirrors")
		if c.MirrorDir != "" {
			addField("Directory", c.MirrorDir)
		}
		if c.MirrorDB != "" {
			addField("Database", c.MirrorDB)
			addField("Table", c.MirrorTable)
		}
	}

	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}

	return sb.String()
}
