package serve

import (
	"fmt"
	"net/http"
	"os"

	cmdUtil "github.com/ValentinKolb/dSM/cmd/util"
	"github.com/ValentinKolb/dSM/lib/replicator"
	fileRep "github.com/ValentinKolb/dSM/lib/replicator/file"
	sqlRep "github.com/ValentinKolb/dSM/lib/replicator/sql"
	"github.com/ValentinKolb/dSM/lib/smap"
	"github.com/ValentinKolb/dSM/remote"
	"github.com/ValentinKolb/dSM/remote/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ReceiverConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a dSM receiver node",
		Long:    `Start a node that accepts inbound replication and applies it to its local shared map. The configuration can be set via command line flags or environment variables. The format of the environment variables is DSM_<flag> (e.g. DSM_ENDPOINT=0.0.0.0:9000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitEnvConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:9000", cmdUtil.WrapString("The address to accept replication on (e.g. 0.0.0.0:9000, /tmp/dsm.sock, ...)"))

	key = "mirror-dir"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional directory to mirror every entry into, one file per entry (empty = disabled)"))

	key = "mirror-db"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional sqlite database to mirror every entry into (empty = disabled)"))

	key = "mirror-table"
	ServeCmd.PersistentFlags().String(key, "entries", cmdUtil.WrapString("The table name used by the sqlite mirror"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address to expose prometheus metrics on (e.g. 0.0.0.0:8080, empty = disabled)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts it to the receiver configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MirrorDir = viper.GetString("mirror-dir")
	serveCmdConfig.MirrorDB = viper.GetString("mirror-db")
	serveCmdConfig.MirrorTable = viper.GetString("mirror-table")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}

	return nil
}

// run starts the receiver node
func run(_ *cobra.Command, _ []string) error {
	common.InitLoggers(serveCmdConfig.LogLevel)

	fmt.Println(serveCmdConfig.String())

	// parse the serializer
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	// create the external mirrors
	mirrors, closeMirrors, err := createMirrors()
	if err != nil {
		return err
	}
	defer closeMirrors()

	listeners := make([]smap.Listener, 0, len(mirrors))
	for _, m := range mirrors {
		listeners = append(listeners, replicator.Mirror(m))
	}

	m := smap.NewSharedMap(listeners...)

	// preload the map from the first mirror that holds rows
	if err := restore(m, mirrors); err != nil {
		return err
	}

	// expose metrics if requested
	if serveCmdConfig.MetricsEndpoint != "" {
		go serveMetrics(serveCmdConfig.MetricsEndpoint)
	}

	network := cmdUtil.NetworkFor(serveCmdConfig.Endpoint)

	// Remove existing socket file if it exists
	if network == "unix" {
		if err := os.RemoveAll(serveCmdConfig.Endpoint); err != nil {
			return fmt.Errorf("failed to remove existing socket file: %v", err)
		}
	}

	receiver := remote.NewReceiver(m, s, serveCmdConfig.Endpoint)
	return receiver.Listen(network, serveCmdConfig.Endpoint)
}

// createMirrors builds the configured external replicators
func createMirrors() ([]replicator.IExternalReplicator[string, replicator.EntryRecord], func(), error) {
	var mirrors []replicator.IExternalReplicator[string, replicator.EntryRecord]

	closeAll := func() {
		for _, m := range mirrors {
			_ = m.Close()
		}
	}

	if dir := serveCmdConfig.MirrorDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create mirror directory: %v", err)
		}
		m, err := fileRep.NewFileReplicator[string, replicator.EntryRecord](dir)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to create file mirror: %v", err)
		}
		mirrors = append(mirrors, m)
	}

	if db := serveCmdConfig.MirrorDB; db != "" {
		m, err := sqlRep.OpenSQLReplicator[string, replicator.EntryRecord](db, serveCmdConfig.MirrorTable)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to create sqlite mirror: %v", err)
		}
		mirrors = append(mirrors, m)
	}

	return mirrors, closeAll, nil
}

// restore applies previously mirrored rows back into the map so a restarted
// node resumes with the state it last mirrored
func restore(m smap.ISharedMap, mirrors []replicator.IExternalReplicator[string, replicator.EntryRecord]) error {
	for _, mirror := range mirrors {
		rows, err := mirror.GetAllExternal()
		if err != nil {
			return fmt.Errorf("failed to load mirrored rows: %v", err)
		}
		if len(rows) == 0 {
			continue
		}

		for _, row := range rows {
			e, err := replicator.EntryOf(row)
			if err != nil {
				remote.Logger.Errorf("failed to decode mirrored row %s, skipping: %v", row.Key, err)
				continue
			}
			if err := m.Apply(e); err != nil {
				remote.Logger.Errorf("failed to restore %s, skipping: %v", e, err)
			}
		}

		remote.Logger.Infof("Restored %d entries from mirror", m.Len())
		return nil
	}
	return nil
}

// serveMetrics exposes the collected metrics in prometheus text format
func serveMetrics(endpoint string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	remote.Logger.Infof("Metrics available on http://%s/metrics", endpoint)
	if err := http.ListenAndServe(endpoint, mux); err != nil {
		remote.Logger.Errorf("Metrics endpoint failed: %v", err)
	}
}
