package types

import (
	"fmt"
)

// RunConfig collects the flags of a cellvm invocation.
type RunConfig struct {
	Script      string `json:"script"`
	DataDir     string `json:"datadir"`
	DBPath      string `json:"db"`
	RPC         string `json:"rpc"`
	MaxCycles   uint64 `json:"max_cycles"`
	LogLevel    string `json:"log_level"`
	LogModules  string `json:"log_modules"`
	LogJson     bool   `json:"logjson"`
	StrictDebug bool   `json:"strict_debug"`
	MetricsAddr string `json:"metrics_addr"`
	OTLP        string `json:"otlp"`
}

// String method returns the RunConfig as a formatted JSON string
func (c *RunConfig) String() string {
	jsonData, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error marshaling JSON: %v", err)
	}
	return string(jsonData)
}
