package shared

import "fmt"

// BackupLockKey builds redis keys for backup critical sections.
func BackupLockKey(scope string) string {
	return fmt.Sprintf("security:backup:%s:lock", scope)
}

// PostureScanLockKey guards the periodic posture scan against double runs.
func PostureScanLockKey() string {
	return "security:posture:scan:lock"
}
