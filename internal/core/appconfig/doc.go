// Package appconfig assembles the environment variables passed to the
// service container.
//
// Variables come from the configuration store namespace of the host
// (see Namespace). Caller overrides may replace a store value or suppress it,
// but never introduce a variable the store does not know. One computed
// GIT_BRANCH variable is always appended last.
//
//	entries := []Entry{{Key: "/ehb-service/config/prod/A", Value: "1"}, {Key: "/ehb-service/config/prod/B", Value: "2"}}
//	set := Assemble(entries, Overrides{"A": Suppress(), "C": Set("9")}, "main")
//	set.String() // "-e B=2 -e GIT_BRANCH=main"
package appconfig
