package security

const (
	// KeyringService is the service name used for keyring entries.
	KeyringService = "yuu-transfer"

	errKeyringNotAvailable = "keyring not available"
	keySFTPPasswordFmt     = "sftp:%s@%s:%d"
	keySFTPPassphraseFmt   = "sftp-passphrase:%s"
	keyObjectStoreFmt      = "oss:%s"
	keyringProbeKey        = "__yuu_transfer_probe__"
)
