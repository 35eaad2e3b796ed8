// term-injector prepares bilingual terminology for machine translation
// training: TBX conversion, sentence pair annotation, terminology checks and
// lttoolbox dictionary generation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
