package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Mode selects which weld outputs are written
type Mode string

const (
	ModeResourcePack Mode = "resourcepack"
	ModeDataPack     Mode = "datapack"
	ModeBoth         Mode = "both"
)

// Output names written into the job directory
const (
	ResourcePackName = "welded-rp"
	DataPackName     = "welded-dp"

	ResourcePackFile = ResourcePackName + ".zip"
	DataPackFile     = DataPackName + ".zip"
	BothFile         = "welded-both.zip"

	// Entry names inside BothFile
	BothResourcePackEntry = "resourcepacks.zip"
	BothDataPackEntry     = "datapacks.zip"
)

var (
	ErrUnknownMode  = goerr.New("unknown weld mode")
	ErrInvalidJobID = goerr.New("invalid job id")
)

// ParseMode converts s to a Mode
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.IsValid() {
		return "", goerr.Wrap(ErrUnknownMode, "mode must be resourcepack, datapack or both", goerr.V("mode", s))
	}
	return m, nil
}

// IsValid reports whether m is one of the recognized modes
func (m Mode) IsValid() bool {
	switch m {
	case ModeResourcePack, ModeDataPack, ModeBoth:
		return true
	default:
		return false
	}
}

// IncludesResourcePack reports whether welded-rp.zip is written in this mode
func (m Mode) IncludesResourcePack() bool {
	return m == ModeResourcePack || m == ModeBoth
}

// IncludesDataPack reports whether welded-dp.zip is written in this mode
func (m Mode) IncludesDataPack() bool {
	return m == ModeDataPack || m == ModeBoth
}

// ResultFile returns the file handed back to the user for this mode
func (m Mode) ResultFile() string {
	switch m {
	case ModeResourcePack:
		return ResourcePackFile
	case ModeDataPack:
		return DataPackFile
	case ModeBoth:
		return BothFile
	default:
		return ""
	}
}

// IsOutputFile reports whether name is a file produced by a previous weld
func IsOutputFile(name string) bool {
	switch name {
	case ResourcePackFile, DataPackFile, BothFile:
		return true
	default:
		return false
	}
}

// ValidateJobID checks that id names a single directory below the temp root
func ValidateJobID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return goerr.Wrap(ErrInvalidJobID, "job id must be a single path segment", goerr.V("job_id", id))
	}
	return nil
}

// WeldRequest is the input of one weld run
type WeldRequest struct {
	JobID   string
	Mode    Mode
	Version string // Target game version, used only when none is configured
}

// WeldResult describes what a weld run wrote
type WeldResult struct {
	JobID        string    `json:"job_id"`
	Mode         Mode      `json:"mode"`
	Version      string    `json:"version"`
	WorkDir      string    `json:"-"`
	ArchiveCount int       `json:"archive_count"`
	Files        []string  `json:"files"`
	ResultPath   string    `json:"-"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Skipped reports whether the run wrote nothing
func (r *WeldResult) Skipped() bool {
	return len(r.Files) == 0
}
