package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testAuditedURLConstant    = "http://localhost:8000/index.html"
	testScriptPathConstant    = "node_modules/grunt-yslow/tasks/lib/yslow.js"
	testInstalledPhantomPath  = "/opt/project/node_modules/phantomjs/lib/phantom/bin/phantomjs"
	testIgnoreSSLFlagConstant = "--ignore-ssl-errors=true"
)

func buildAuditCommand(name CommandName) ShellCommand {
	return ShellCommand{
		Name: name,
		Details: CommandDetails{
			Arguments: []string{testIgnoreSSLFlagConstant, testScriptPathConstant, "--info", "basic", testAuditedURLConstant},
		},
	}
}

func TestBuildMessagesForAuditCommands(t *testing.T) {
	formatter := CommandMessageFormatter{}

	testCases := []struct {
		name     string
		build    func(command ShellCommand) string
		expected string
	}{
		{
			name:     "started",
			build:    formatter.BuildStartedMessage,
			expected: "Auditing http://localhost:8000/index.html with " + testInstalledPhantomPath,
		},
		{
			name:     "success",
			build:    formatter.BuildSuccessMessage,
			expected: "Audited http://localhost:8000/index.html",
		},
		{
			name: "failure",
			build: func(command ShellCommand) string {
				return formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 2, StandardError: " page timed out \n"})
			},
			expected: "Audit of http://localhost:8000/index.html exited with code 2: page timed out",
		},
		{
			name: "execution_failure",
			build: func(command ShellCommand) string {
				return formatter.BuildExecutionFailureMessage(command, errors.New("executable file not found"))
			},
			expected: "Unable to audit http://localhost:8000/index.html: executable file not found",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expected, testCase.build(buildAuditCommand(CommandName(testInstalledPhantomPath))))
		})
	}
}

func TestBuildStartedMessageFallsBackToGenericLabel(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandName("node"),
		Details: CommandDetails{
			Arguments:        []string{"--version"},
			WorkingDirectory: "/workspace/site",
		},
	}

	require.Equal(t, "Running node --version (in /workspace/site)", formatter.BuildStartedMessage(command))
}

func TestBuildStartedMessageWithoutURLUsesGenericLabel(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{Name: CommandPhantomJS, Details: CommandDetails{Arguments: []string{"--version"}}}

	require.Equal(t, "Running phantomjs --version", formatter.BuildStartedMessage(command))
}

func TestBuildExecutionFailureMessageWithoutCause(t *testing.T) {
	formatter := CommandMessageFormatter{}

	message := formatter.BuildExecutionFailureMessage(buildAuditCommand(CommandPhantomJS), nil)

	require.Equal(t, "Unable to audit http://localhost:8000/index.html: unknown error", message)
}
