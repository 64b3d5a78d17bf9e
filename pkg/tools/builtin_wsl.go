package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// WSLResult is the return shape of execute_wsl_command.
type WSLResult struct {
	Success    bool   `json:"success"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"return_code"`
}

// ExecuteWSLCommand runs a command inside a WSL distribution via
// `wsl.exe -d <distribution> -u <user> -- <command>`, grounded on
// lowkaihon-cli-coding-agent's os/exec + captured-output idiom.
func ExecuteWSLCommand() Fn {
	return func(ctx context.Context, args map[string]any) (any, error) {
		command, _ := args["command"].(string)
		distribution, _ := args["distribution"].(string)
		if command == "" {
			return nil, fmt.Errorf("command is required")
		}
		if distribution == "" {
			return nil, fmt.Errorf("distribution is required")
		}

		wslArgs := []string{"-d", distribution}
		if user, _ := args["user"].(string); user != "" {
			wslArgs = append(wslArgs, "-u", user)
		}
		wslArgs = append(wslArgs, "--", "bash", "-lc", command)

		cmd := exec.CommandContext(ctx, "wsl.exe", wslArgs...)
		if password, _ := args["password"].(string); password != "" {
			cmd.Env = append(cmd.Environ(), "WSL_SUDO_PASSWORD="+password)
		}

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()
		returnCode := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			returnCode = exitErr.ExitCode()
		} else if err != nil {
			return WSLResult{Success: false, Stderr: err.Error(), ReturnCode: -1}, nil
		}

		return WSLResult{
			Success:    returnCode == 0,
			Stdout:     stdout.String(),
			Stderr:     stderr.String(),
			ReturnCode: returnCode,
		}, nil
	}
}
