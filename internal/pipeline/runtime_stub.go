//go:build !govips || !cgo

package pipeline

const EngineName = "std"

func Startup() error {
	return nil
}

func Shutdown() {}

func newEngine() (Engine, error) {
	return stdEngine{}, nil
}
