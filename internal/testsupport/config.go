package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"lightsd-formula/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Prefix = filepath.Join(base, "prefix")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.ReceiptsDB = filepath.Join(base, "work", "receipts.db")
	if err := os.MkdirAll(cfgVal.Paths.WorkDir, 0o755); err != nil {
		t.Fatalf("mkdir work dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLocalSource switches the config to a local source tree containing a
// CMakeLists.txt.
func WithLocalSource() ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "src")
		WriteSourceTree(b.t, dir)
		b.cfg.Formula.Source = config.SourceLocal
		b.cfg.Formula.SourceDir = dir
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default build tools are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"cmake", "make", "git"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		prependPath(b.t, binDir)
	}
}

// WithFakeBuildTools installs cmake and make stand-ins that emulate an
// install: cmake records its install prefix and make install drops a daemon
// stub into <prefix>/bin. The daemon stub exits with daemonExit.
func WithFakeBuildTools(daemonExit int) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "fakebin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir fake bin dir: %v", err)
		}
		cmake := `#!/bin/sh
printf '%s\n' "$@" > .configure-args
for arg in "$@"; do
	case "$arg" in
	-DCMAKE_INSTALL_PREFIX=*) printf '%s' "${arg#-DCMAKE_INSTALL_PREFIX=}" > .install-prefix ;;
	esac
done
echo "-- Configuring done"
`
		make := `#!/bin/sh
[ "$1" = "install" ] || exit 2
prefix=$(cat .install-prefix) || exit 3
mkdir -p "$prefix/bin" "$prefix/share/lightsd/examples" || exit 4
cat > "$prefix/bin/lightsd" <<'STUB'
#!/bin/sh
echo "Usage: lightsd [-l addr:port [-l ...]] [-c filepath] [-s filepath] [-h] [-v debug|info|warning|error]"
exit ` + strconv.Itoa(daemonExit) + `
STUB
chmod 755 "$prefix/bin/lightsd"
echo "Install the project..."
`
		writeExecutable(b.t, filepath.Join(binDir, "cmake"), cmake)
		writeExecutable(b.t, filepath.Join(binDir, "make"), make)
		b.cfg.Build.CMake = filepath.Join(binDir, "cmake")
		b.cfg.Build.Make = filepath.Join(binDir, "make")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}

func prependPath(t testing.TB, dir string) {
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}
