// Package shareconf reads and validates per-share configuration documents.
package shareconf

import "fmt"

// Config is the parsed share configuration. Only the fields the supervisor
// inspects are modeled; the full schema is owned by the external validators
// and the worker program itself.
type Config struct {
	NetworkPrivateKey string `json:"networkPrivateKey" mapstructure:"networkPrivateKey"`
	PaymentAddress    string `json:"paymentAddress" mapstructure:"paymentAddress"`
	StoragePath       string `json:"storagePath" mapstructure:"storagePath"`
	StorageAllocation string `json:"storageAllocation" mapstructure:"storageAllocation"`
	LoggerOutputFile  string `json:"loggerOutputFile" mapstructure:"loggerOutputFile"`
	RPCAddress        string `json:"rpcAddress" mapstructure:"rpcAddress"`
	RPCPort           int    `json:"rpcPort" mapstructure:"rpcPort"`
	MaxTunnels        int    `json:"maxTunnels" mapstructure:"maxTunnels"`
	TunnelGatewayMin  int    `json:"tunnelGatewayRangeMin" mapstructure:"tunnelGatewayRangeMin"`
	TunnelGatewayMax  int    `json:"tunnelGatewayRangeMax" mapstructure:"tunnelGatewayRangeMax"`
}

// ReadError reports an inaccessible config file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read config at %s", e.Path)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ParseError reports a config file that is not valid structured data.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse config at %s", e.Path)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a required field that failed semantic validation.
// The message is surfaced verbatim to callers.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// AllocationError reports a storage allocation rejected by the validator.
type AllocationError struct{ Msg string }

func (e *AllocationError) Error() string { return e.Msg }
