package backup

// AttachResponse is the result of attachFolder and attachEncryptedFolder.
type AttachResponse struct {
	RC                 string         `json:"attachFolderRC"`
	EncryptionMode     EncryptionMode `json:"encryptionMode"`
	SharedSecret       string         `json:"sharedSecret"`
	PassPhraseSalt     string         `json:"passPhraseSalt"`
	EncryptedFolderKey string         `json:"encryptedFolderKey"`
}

// CreateResponse is the result of createFolder.
type CreateResponse struct {
	RC             string `json:"createFolderRC"`
	SharedSecret   string `json:"sharedSecret"`
	PassPhraseSalt string `json:"passPhraseSalt"`
}

type AttachOutcome int

const (
	AttachOK AttachOutcome = iota
	AttachNotFound
	AttachEncrypted
	AttachFailed
)

func (o AttachOutcome) String() string {
	switch o {
	case AttachOK:
		return "ok"
	case AttachNotFound:
		return "not-found"
	case AttachEncrypted:
		return "encrypted"
	}
	return "failed"
}

// AttachResult is a classified attach response. Settings is set for AttachOK,
// Challenge for AttachEncrypted and Err for AttachFailed.
type AttachResult struct {
	Outcome   AttachOutcome
	RC        string
	Settings  *Settings
	Challenge *AttachChallenge
	Err       error
}

// ClassifyAttach maps an attach response code onto its outcome.
func ClassifyAttach(resp AttachResponse) AttachResult {
	res := AttachResult{RC: resp.RC}
	switch resp.RC {
	case RCOK:
		res.Outcome = AttachOK
		res.Settings = &Settings{
			EncryptionMode: resp.EncryptionMode,
			SharedSecret:   resp.SharedSecret,
			PassPhraseSalt: resp.PassPhraseSalt,
		}
	case RCNotFound:
		res.Outcome = AttachNotFound
	case RCIsEncrypted:
		res.Outcome = AttachEncrypted
		res.Challenge = &AttachChallenge{
			EncryptionMode:     resp.EncryptionMode,
			EncryptedFolderKey: resp.EncryptedFolderKey,
			PassPhraseSalt:     resp.PassPhraseSalt,
		}
	case RCCheckCodeInCorrect:
		res.Outcome = AttachFailed
		res.Err = ErrIncorrectPassphrase
	case RCClocksOutOfSync:
		res.Outcome = AttachFailed
		res.Err = ErrClockOutOfSync
	default:
		res.Outcome = AttachFailed
		res.Err = ErrAttachFailed
	}
	return res
}

type CreateOutcome int

const (
	CreateOK CreateOutcome = iota
	CreateAlreadyExists
	CreateFailed
)

func (o CreateOutcome) String() string {
	switch o {
	case CreateOK:
		return "ok"
	case CreateAlreadyExists:
		return "already-exists"
	}
	return "failed"
}

// CreateResult is a classified create response. Settings carries no
// encryption mode; the caller attaches the mode it asked for.
type CreateResult struct {
	Outcome  CreateOutcome
	RC       string
	Settings *Settings
	Err      error
}

// ClassifyCreate maps a create response code onto its outcome.
func ClassifyCreate(resp CreateResponse) CreateResult {
	res := CreateResult{RC: resp.RC}
	switch resp.RC {
	case RCOK:
		res.Outcome = CreateOK
		res.Settings = &Settings{
			SharedSecret:   resp.SharedSecret,
			PassPhraseSalt: resp.PassPhraseSalt,
		}
	case RCFolderAlreadyExists:
		res.Outcome = CreateAlreadyExists
	default:
		res.Outcome = CreateFailed
		res.Err = ErrCreateFailed
	}
	return res
}
