package validate

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "handlers.logfile.formatter"
	Message string // e.g., "references undeclared formatter"
	Hint    string // e.g., "allowed values: console, file"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidateDirWritable validates that a directory exists and is writable.
func ValidateDirWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access directory: %v", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory")
	}

	// Try to write a test file
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte(""), 0644); err != nil {
		return fmt.Errorf("directory not writable: %v", err)
	}
	os.Remove(testFile)

	return nil
}

// ValidateWorkDir validates that a working directory exists or can be
// created under a writable parent.
func ValidateWorkDir(path string) error {
	if path == "" {
		return fmt.Errorf("must not be empty")
	}

	expandedPath := os.ExpandEnv(path)
	if strings.HasPrefix(expandedPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %v", err)
		}
		expandedPath = filepath.Join(home, expandedPath[1:])
	}

	if info, err := os.Stat(expandedPath); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory")
		}
		return ValidateDirWritable(expandedPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access path: %v", err)
	}

	// Directory doesn't exist; the parent must be usable so it can be
	// created at runtime.
	parent := filepath.Dir(expandedPath)
	if parent == "" {
		parent = "."
	}
	if info, err := os.Stat(parent); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("parent directory not accessible: %v", err)
		}
		// Parent doesn't exist either - that's ok, will be created
	} else if !info.IsDir() {
		return fmt.Errorf("parent path is not a directory")
	} else if err := ValidateDirWritable(parent); err != nil {
		return fmt.Errorf("parent directory not writable: %v", err)
	}

	return nil
}

// ValidateFileReadable validates that a file exists and is readable.
func ValidateFileReadable(path string) error {
	_, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read file: %v", err)
	}
	return nil
}

// ValidateHostPort validates a host:port address format.
func ValidateHostPort(hostPort string) error {
	parts := strings.Split(hostPort, ":")
	if len(parts) != 2 {
		return fmt.Errorf("expected format host:port")
	}

	host := parts[0]
	port := parts[1]

	if host == "" {
		return fmt.Errorf("host must not be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 1 || portNum > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535; got %q", port)
	}

	return nil
}

// ValidateListenAddr validates a listen address of the form host:port or
// :port.
func ValidateListenAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("must not be empty")
	}
	if strings.HasPrefix(addr, ":") {
		portNum, err := strconv.Atoi(addr[1:])
		if err != nil || portNum < 1 || portNum > 65535 {
			return fmt.Errorf("port must be a number between 1 and 65535; got %q", addr[1:])
		}
		return nil
	}
	return ValidateHostPort(addr)
}

// ValidateBaseURL validates an http(s) API base URL.
func ValidateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https; got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	return nil
}
