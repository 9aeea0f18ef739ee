// Command sheetport converts between .xlsx workbooks and catalog-shaped JSON
// datasets, filters records and translates spreadsheet column addresses.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
