// Package buildtesting provides a pool of throwaway Go modules for use in tests.
package buildtesting

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/alecthomas/assert/v2"
)

const goMod = "module test\n\ngo 1.24\n"

type Env struct {
	dir string
}

func newEnv(dir string) Env {
	if err := os.MkdirAll(dir, 0750); err != nil {
		log.Fatalln(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(goMod), 0600); err != nil {
		log.Fatalln(err)
	}
	return Env{dir: dir}
}

type Pool struct {
	available chan Env
}

// Run should be called from TestMain.
//
//	func TestMain(m *testing.M) { buildtesting.Run(m) }
//
// Then use Prepare() to obtain a module.
func Run(m *testing.M) {
	dir, err := os.MkdirTemp("", "zerodi-loader-")
	if err != nil {
		log.Fatal(err)
	}
	count := runtime.NumCPU() * 2
	pool = &Pool{available: make(chan Env, count)}
	for i := range count {
		pool.available <- newEnv(filepath.Join(dir, strconv.Itoa(i)))
	}
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

var pool *Pool

// Prepare a module named "test" containing main.go, returning its path.
func Prepare(t *testing.T, main string) string {
	t.Helper()
	return pool.Prepare(t, main)
}

// Prepare a module named "test" containing main.go, returning its path.
//
// When the test completes the module will be returned to the pool.
func (p *Pool) Prepare(t *testing.T, main string) string {
	t.Helper()
	env := <-p.available
	t.Cleanup(func() { p.returnEnv(t, env) })
	err := os.WriteFile(filepath.Join(env.dir, "main.go"), []byte(main), 0600)
	assert.NoError(t, err)
	return env.dir
}

func (p *Pool) returnEnv(t *testing.T, env Env) {
	t.Helper()
	err := os.Remove(filepath.Join(env.dir, "main.go"))
	assert.NoError(t, err)
	p.available <- env
}
