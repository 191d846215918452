package converter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one conversion against the running daemon. It is an
// interface so queue behavior is testable without LibreOffice installed.
type Runner interface {
	Convert(ctx context.Context, inputPath, outputDir string) error
}

// sofficeRunner shells out to the LibreOffice binary sharing the daemon's
// user profile, so the invocation attaches to the warm instance instead of
// paying the cold-start cost.
type sofficeRunner struct {
	bin        string
	profileDir string
}

func newSofficeRunner(bin, profileDir string) Runner {
	return &sofficeRunner{bin: bin, profileDir: profileDir}
}

func (r *sofficeRunner) Convert(ctx context.Context, inputPath, outputDir string) error {
	cmd := exec.CommandContext(ctx, r.bin,
		"--headless",
		"--norestore",
		fmt.Sprintf("-env:UserInstallation=file://%s", r.profileDir),
		"--convert-to", "pdf",
		"--outdir", outputDir,
		inputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("convert %s: %w: %s", inputPath, err, detail)
		}
		return fmt.Errorf("convert %s: %w", inputPath, err)
	}
	return nil
}
