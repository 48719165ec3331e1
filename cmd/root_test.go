package main

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/content-fixer/internal/correction"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"create", "process", "maintain", "workflow", "stats", "requeue", "ping", "scan", "import", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "content-fixer", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)

	flag := rootCmd.PersistentFlags().Lookup("dry-run")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestProcessCommand_Flags(t *testing.T) {
	flag := processCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)

	flag = processCmd.Flags().Lookup("batch-size")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestWorkflowCommand_Flags(t *testing.T) {
	for _, name := range []string{"create-limit", "process-limit", "batch-size"} {
		assert.NotNil(t, workflowCmd.Flags().Lookup(name), "workflow should have --%s", name)
	}
}

func TestRequeueCommand_Flags(t *testing.T) {
	flag := requeueCmd.Flags().Lookup("all-failed")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
	assert.NotNil(t, requeueCmd.Flags().Lookup("limit"))
}

func TestRequeueCommand_RequiresTarget(t *testing.T) {
	requeueAllFailed = false
	err := requeueCmd.RunE(requeueCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--all-failed")

	requeueAllFailed = true
	defer func() { requeueAllFailed = false }()
	err = requeueCmd.RunE(requeueCmd, []string{"abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclusive")
}

func TestImportCommand_Flags(t *testing.T) {
	flag := importCmd.Flags().Lookup("batch-size")
	require.NotNil(t, flag)
	assert.Equal(t, "500", flag.DefValue)
}

func TestScanCommand_Flags(t *testing.T) {
	assert.NotNil(t, scanCmd.Flags().Lookup("category"))
	assert.NotNil(t, scanCmd.Flags().Lookup("limit"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestStatsCommand_Flags(t *testing.T) {
	flag := statsCmd.Flags().Lookup("json")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestProcessExit(t *testing.T) {
	assert.NoError(t, processExit(nil))
	assert.NoError(t, processExit(&correction.ProcessResult{Completed: 3}))
	assert.ErrorIs(t, processExit(&correction.ProcessResult{Completed: 2, Failed: 1}), errFailures)
}

func TestSignalContext_CancelsOnInterrupt(t *testing.T) {
	ctx, stop := signalContext(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGINT")
	}
}

func TestSignalContext_FollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := signalContext(parent)
	defer stop()

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestWorkflowCommand_StageOrder(t *testing.T) {
	assert.Equal(t, "Run create, process and maintain in sequence", workflowCmd.Short)
}
