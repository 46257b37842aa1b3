package realdialog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/wanjune/yuu-transfer/internal/ports"
)

func runSFTPForm(prefill ports.SFTPProfileForm) (ports.SFTPProfileForm, error) {
	result := prefill
	portStr := portString(prefill.Port)
	var confirmed bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Profile Name").
				Description("Short name used on the command line (e.g. 'ingest')").
				Validate(notEmpty("name")).
				Value(&result.Name),

			huh.NewInput().
				Title("Host").
				Description("SFTP hostname or IP address").
				Validate(notEmpty("host")).
				Value(&result.Host),

			huh.NewInput().
				Title("Port").
				Validate(validatePort).
				Value(&portStr),

			huh.NewInput().
				Title("User").
				Validate(notEmpty("user")).
				Value(&result.User),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("SSH Key Path").
				Description("Private key (leave empty for ssh-agent or password)").
				Value(&result.KeyPath),

			huh.NewInput().
				Title("Password Env Var").
				Description("Environment variable holding the password (optional)").
				Value(&result.PasswordEnv),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this profile?").
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		return prefill, fmt.Errorf("sftp profile form: %w", err)
	}

	result.Port = parsePort(portStr)
	result.Confirmed = confirmed
	return result, nil
}

func runObjectStoreForm(prefill ports.ObjectStoreProfileForm) (ports.ObjectStoreProfileForm, error) {
	result := prefill
	if result.Provider == "" {
		result.Provider = "aliyun"
	}
	var confirmed bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Profile Name").
				Validate(notEmpty("name")).
				Value(&result.Name),

			huh.NewSelect[string]().
				Title("Provider").
				Options(
					huh.NewOption("Aliyun OSS", "aliyun"),
					huh.NewOption("S3 compatible", "s3"),
				).
				Value(&result.Provider),

			huh.NewInput().
				Title("Bucket").
				Validate(notEmpty("bucket")).
				Value(&result.Bucket),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Endpoint").
				Description("e.g. oss-cn-hangzhou.aliyuncs.com (optional for AWS)").
				Value(&result.Endpoint),

			huh.NewInput().
				Title("Region").
				Value(&result.Region),

			huh.NewInput().
				Title("Access Key ID").
				Value(&result.AccessKeyID),

			huh.NewInput().
				Title("Secret Env Var").
				Description("Environment variable holding the access key secret (optional)").
				Value(&result.AccessKeySecretEnv),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this profile?").
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		return prefill, fmt.Errorf("object store profile form: %w", err)
	}

	result.Confirmed = confirmed
	return result, nil
}

func portString(port int) string {
	if port <= 0 {
		return "22"
	}
	return strconv.Itoa(port)
}

// parsePort falls back to 22 for anything that is not a valid port.
func parsePort(s string) int {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port <= 0 || port > 65535 {
		return 22
	}
	return port
}

func validatePort(s string) error {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("port must be 1-65535")
	}
	return nil
}
