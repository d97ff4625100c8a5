// Package main is the entry point for the securebridge binary, a command
// line client for the dashboard API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	securebridge "github.com/opengovern/secure-bridge"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var apiErr *securebridge.Error
		if errors.As(err, &apiErr) {
			printAPIError(os.Stderr, apiErr)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch securebridge.KindOf(err) {
	case securebridge.KindUnauthorized, securebridge.KindForbidden:
		return 3
	case securebridge.KindValidationError:
		return 4
	case securebridge.KindRateLimited, securebridge.KindTimeout, securebridge.KindNetworkError:
		return 5
	case "":
		return 1
	}
	return 2
}
