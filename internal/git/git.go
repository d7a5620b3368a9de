package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status describes how the vault and its side files relate to an enclosing
// git repository.
type Status struct {
	IsRepo       bool
	VaultTracked bool
	SideFiles    []SideFile
}

// SideFile is a file pwvault keeps next to the vault.
type SideFile struct {
	Path    string
	Tracked bool
	Ignored bool
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// Check inspects the repository holding vaultPath, if any. sideFiles are
// the lock file and history database paths.
func Check(vaultPath string, sideFiles ...string) *Status {
	dir := filepath.Dir(vaultPath)
	status := &Status{}
	if !IsGitRepo(dir) {
		return status
	}
	status.IsRepo = true
	status.VaultTracked = IsTracked(dir, filepath.Base(vaultPath))

	for _, p := range sideFiles {
		name := filepath.Base(p)
		status.SideFiles = append(status.SideFiles, SideFile{
			Path:    name,
			Tracked: IsTracked(dir, name),
			Ignored: IsIgnored(dir, name),
		})
	}
	return status
}

// Format renders status for display. It is empty outside a repository.
// The history holds every previous revision, each sealed under the
// passphrase current at the time.
func Format(status *Status) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit:\n")
	if status.VaultTracked {
		result.WriteString("   ok: vault is tracked by git\n")
	} else {
		result.WriteString("   info: vault is inside a git repository but not tracked\n")
	}

	for _, f := range status.SideFiles {
		switch {
		case f.Tracked:
			result.WriteString(fmt.Sprintf("   error: %s is tracked by git (run: git rm --cached %s)\n", f.Path, f.Path))
		case !f.Ignored:
			result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore\n", f.Path))
		}
	}
	return result.String()
}
