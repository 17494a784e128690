// Package backup configures the cloud backup service of an edge filer.
//
// Configure negotiates the appliance's backup folder with the portal: it first
// tries to attach to an existing folder, answers the encryption challenge of a
// passphrase-protected folder, and provisions a new folder when none exists.
// The resulting encryption settings are written to /config/backup.
//
// Backup sets and their file exclusion rules are built with NewBackupSet and
// the File* criteria builders, and converted with BackupSetObjects.
//
//	gw := gateway.NewWithBackend(backend)
//	b := backup.New(gw, taskmgr.New(gw))
//	if err := b.Configure(ctx, passphrase); errors.Is(err, backup.ErrIncorrectPassphrase) {
//		// ask again
//	}
package backup
