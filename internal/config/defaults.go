package config

const (
	defaultFormulaName        = "lightsd"
	defaultFormulaDescription = "Daemon to control your LIFX wifi smart bulbs"
	defaultHomepage           = "https://github.com/lopter/lightsd/"
	defaultHeadURL            = "https://github.com/lopter/lightsd.git"
	defaultVersion            = "1.2.1"
	defaultPrefix             = "/usr/local"
	defaultReceiptsDB         = "receipts.db"
	defaultCMakeBinary        = "cmake"
	defaultMakeBinary         = "make"
	defaultPathPrefix         = "/usr/bin"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Formula: Formula{
			Name:        defaultFormulaName,
			Description: defaultFormulaDescription,
			Homepage:    defaultHomepage,
			Source:      SourceHead,
			Version:     defaultVersion,
			HeadURL:     defaultHeadURL,
		},
		Paths: Paths{
			WorkDir: defaultWorkDir(),
		},
		Build: Build{
			BuildType:  BuildRelease,
			CMake:      defaultCMakeBinary,
			Make:       defaultMakeBinary,
			PathPrefix: []string{defaultPathPrefix},
			Python:     ToggleDisabled,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
