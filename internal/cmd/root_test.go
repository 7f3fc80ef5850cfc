package cmd

import (
	"testing"

	"github.com/weihli/uquad/internal/state"
)

func TestRootCommandRequiresAtLeastOneArg(t *testing.T) {
	ts := state.NewTest()
	ts.Args = []string{"uquad"}
	rc := newRootCommand(ts.Global)

	if err := rc.cmd.Execute(); err == nil {
		t.Fatal("expected an error when no imu_device argument is given")
	}
}

func TestRootCommandMissingIMUDeviceFails(t *testing.T) {
	ts := state.NewTest()
	// Skip the file config layer — no config file exists in the fake FS,
	// and the flag default is read from DefaultFlags at flag-definition
	// time, so it must be cleared here rather than on Flags directly.
	ts.DefaultFlags.ConfigFilePath = ""
	ts.Flags.ConfigFilePath = ""
	ts.Args = []string{"uquad", "/no/such/imu.csv"}
	rc := newRootCommand(ts.Global)

	if err := rc.cmd.Execute(); err == nil {
		t.Fatal("expected an error when the IMU device/log cannot be opened")
	}
}

func TestRootPersistentFlagSetParsesDomainFlags(t *testing.T) {
	ts := state.NewTest()
	var rf rootFlags
	flags := rootPersistentFlagSet(ts.Global, &rf)

	if err := flags.Parse([]string{"--debug", "--use-gps", "--ol-ts-stabil", "5"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	if !rf.debug || !rf.useGPS {
		t.Fatal("expected --debug and --use-gps to be parsed")
	}
	if rf.olTsStabil != 5 {
		t.Fatalf("expected --ol-ts-stabil=5, got %d", rf.olTsStabil)
	}
}
