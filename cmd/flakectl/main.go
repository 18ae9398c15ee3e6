package main

import (
	"fmt"
	"os"

	"github.com/zhukov-alex/flakeid/internal/ctl"
)

func main() {
	if err := ctl.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flakectl:", err)
		os.Exit(1)
	}
}
