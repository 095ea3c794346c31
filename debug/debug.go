package debug

import (
	"fmt"
	"os"
	"strconv"
)

type debug struct {
	Txn     bool
	Migrate bool
	Convert bool
}

var d *debug

func init() {
	d = &debug{}
	d.Txn = boolEnv("MUTANTIC_DEBUG_TXN")
	d.Migrate = boolEnv("MUTANTIC_DEBUG_MIGRATE")
	d.Convert = boolEnv("MUTANTIC_DEBUG_CONVERT")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Txn() bool {
	return d.Txn
}
func Migrate() bool {
	return d.Migrate
}
func Convert() bool {
	return d.Convert
}

func Logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}
