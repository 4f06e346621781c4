// Package config provides the session profile for the streaming client.
//
// A session profile is a YAML file describing the gateway endpoint and the
// static data emitted by the bootstrap sequence: auth token, session
// identifiers, quote fields, the chart series and the attached indicator.
// None of it is computed by the protocol engine; it is deployment data.
//
// # Profile Location
//
// The default profile is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/tvstream/session.yaml or $HOME/.config/tvstream/session.yaml
//   - macOS: $HOME/.config/tvstream/session.yaml
//   - Windows: %LOCALAPPDATA%\tvstream\session.yaml
//
// A missing default profile is not an error; DefaultProfile is used instead.
//
// # Layering
//
// Files are decoded over DefaultProfile, so a profile only has to name the
// values it changes:
//
//	version: 1
//	session:
//	  symbol: "BINANCE:ETHUSDT"
//	  series:
//	    interval: "5"
//
// Lists (fields, fast symbols, study inputs) replace the default list as a
// whole.
//
// # Usage Example
//
//	profile, err := config.LoadProfile("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(profile.Endpoint.URL())
package config
