package main

// Compiled-in interceptor modules. Each registers itself from init().
import (
	_ "github.com/tapline-dev/tapline/modules/intercept/audit"
	_ "github.com/tapline-dev/tapline/modules/intercept/blocklist"
	_ "github.com/tapline-dev/tapline/modules/intercept/redact"
)
