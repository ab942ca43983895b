package security

import (
	"fmt"
	"os"
)

const (
	// PermPrivateKey is for TLS private keys.
	// rw------- (0600): only owner can read/write, no one else has access.
	PermPrivateKey os.FileMode = 0600

	// PermCertificate is for TLS certificates. The web server must be able
	// to read them, so they are world-readable.
	// rw-r--r-- (0644): owner can read/write, group and others can read.
	PermCertificate os.FileMode = 0644

	// PermRegistry is for the registry file. It records project paths on the
	// local machine, so it stays private to the operator.
	// rw------- (0600): only owner can read/write, no one else has access.
	PermRegistry os.FileMode = 0600

	// PermStateDir is for the per-user state directory.
	// rwx------ (0700): only owner has access.
	PermStateDir os.FileMode = 0700

	// PermVHostConf is for generated Apache site fragments, which the
	// server process reads.
	// rw-r--r-- (0644): owner can read/write, group and others can read.
	PermVHostConf os.FileMode = 0644

	// PermHistoryDB is for the operation history database.
	// rw-r----- (0640): owner can read/write, group can read, others have no access.
	PermHistoryDB os.FileMode = 0640
)

// CreateSecureFile creates a new file with the given permissions.
// If the file exists, it will be truncated.
func CreateSecureFile(path string, perm os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to create secure file: %w", err)
	}

	// Explicitly set permissions to bypass umask
	if err := os.Chmod(path, perm); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to set file permissions: %w", err)
	}

	return file, nil
}

// CreateSecureDir creates a directory with the given permissions.
// If the directory already exists, it updates the permissions.
// Creates parent directories as needed.
func CreateSecureDir(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create secure directory: %w", err)
	}

	// Ensure permissions are set correctly (MkdirAll may use umask)
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to set directory permissions: %w", err)
	}

	return nil
}

// FixFilePermissions sets the correct permissions on an existing file.
func FixFilePermissions(path string, perm os.FileMode) error {
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to fix file permissions: %w", err)
	}
	return nil
}

// IsWorldReadable checks if a mode is readable by others.
func IsWorldReadable(perm os.FileMode) bool {
	return perm&0004 != 0
}

// IsWorldWritable checks if a mode is writable by others.
func IsWorldWritable(perm os.FileMode) bool {
	return perm&0002 != 0
}

// ValidateKeyPermissions validates that a private key file is not readable
// or writable by anyone but its owner.
func ValidateKeyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	perm := info.Mode().Perm()

	if IsWorldReadable(perm) || perm&0040 != 0 {
		return fmt.Errorf("private key %s is readable by others (%04o)", path, perm)
	}

	if IsWorldWritable(perm) || perm&0020 != 0 {
		return fmt.Errorf("private key %s is writable by others (%04o)", path, perm)
	}

	return nil
}
