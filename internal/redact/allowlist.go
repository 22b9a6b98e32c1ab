package redact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

var (
	// ErrInvalidTOML marks an allowlist file that exists but cannot be
	// parsed.
	ErrInvalidTOML = errors.New("invalid allowlist TOML")
	// ErrInvalidRegex marks an allowlist pattern that does not compile.
	ErrInvalidRegex = errors.New("invalid allowlist pattern")
)

// Allowlist holds path and content patterns excluded from secret
// detection.
type Allowlist struct {
	Paths   []string
	Regexes []string
}

// LoadAllowlists merges the project and user allowlists as a union.
// Missing files are skipped; files that exist but carry bad TOML or bad
// patterns fail. projectDir is a directory searched for .gitleaks.toml;
// userFile is a full path to an allowlist TOML file. Either may be
// empty.
func LoadAllowlists(projectDir, userFile string) (*Allowlist, error) {
	merged := &Allowlist{}

	if projectDir != "" {
		project, err := loadTOML(filepath.Join(projectDir, ".gitleaks.toml"))
		switch {
		case err == nil:
			merged.Paths = append(merged.Paths, project.Paths...)
			merged.Regexes = append(merged.Regexes, project.Regexes...)
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if userFile != "" {
		user, err := loadTOML(userFile)
		switch {
		case err == nil:
			merged.Paths = append(merged.Paths, user.Paths...)
			merged.Regexes = append(merged.Regexes, user.Regexes...)
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	return merged, nil
}

// loadTOML reads one allowlist file and validates its patterns so later
// compilation cannot fail.
func loadTOML(path string) (*Allowlist, error) {
	var file struct {
		Allowlist struct {
			Paths   []string
			Regexes []string
		}
	}

	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	for _, pattern := range file.Allowlist.Paths {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: path pattern %q in %s: %v", ErrInvalidRegex, pattern, path, err)
		}
	}
	for _, pattern := range file.Allowlist.Regexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: content pattern %q in %s: %v", ErrInvalidRegex, pattern, path, err)
		}
	}

	return &Allowlist{Paths: file.Allowlist.Paths, Regexes: file.Allowlist.Regexes}, nil
}

// applyAllowlist adds the merged patterns to the detector config as one
// global allowlist entry. Patterns were validated in loadTOML, so a
// compile failure here is a programming error.
func applyAllowlist(cfg *gitleaksConfig.Config, allowlist *Allowlist) {
	if len(allowlist.Paths) == 0 && len(allowlist.Regexes) == 0 {
		return
	}

	entry := &gitleaksConfig.Allowlist{Description: "docqd allowlist"}
	for _, pattern := range allowlist.Paths {
		entry.Paths = append(entry.Paths, (*gitleaksRegexp.Regexp)(regexp.MustCompile(pattern)))
	}
	for _, pattern := range allowlist.Regexes {
		entry.Regexes = append(entry.Regexes, (*gitleaksRegexp.Regexp)(regexp.MustCompile(pattern)))
	}
	cfg.Allowlists = append(cfg.Allowlists, entry)
}
