package ingest

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	qerrors "github.com/quarrydb/quarry/internal/errors"
)

// tabular file extensions accepted from uploads and archives.
var tabularExtensions = map[string]bool{
	".csv": true,
	".tsv": true,
	".txt": true,
}

// IsTabularFile reports whether the filename has an accepted tabular
// extension.
func IsTabularFile(name string) bool {
	return tabularExtensions[strings.ToLower(filepath.Ext(name))]
}

// MemberFailure records an archive member that could not be extracted.
type MemberFailure struct {
	Name string
	Err  error
}

// ExtractArchive unpacks the tabular members of a zip file into destDir
// and returns their paths. Directory entries, macOS resource forks,
// hidden files, and non-tabular members are skipped. A member that fails
// to extract is reported in the failure list while its siblings keep
// processing; only an unreadable archive or one with no tabular members
// at all is an error.
func ExtractArchive(zipPath, destDir string) ([]string, []MemberFailure, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, nil, qerrors.NewIngestionError(qerrors.CodeBadArchive,
			fmt.Sprintf("could not open archive %s", filepath.Base(zipPath)), err)
	}
	defer r.Close()

	var extracted []string
	var failed []MemberFailure
	for _, member := range r.File {
		if member.FileInfo().IsDir() {
			continue
		}
		if strings.HasPrefix(member.Name, "__MACOSX/") {
			continue
		}
		base := filepath.Base(member.Name)
		if strings.HasPrefix(base, ".") {
			continue
		}
		if !IsTabularFile(base) {
			continue
		}

		// Flatten archive structure; nested paths keep only the basename.
		destPath := filepath.Join(destDir, base)
		if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			continue
		}

		if err := extractMember(member, destPath); err != nil {
			failed = append(failed, MemberFailure{Name: base, Err: err})
			continue
		}
		extracted = append(extracted, destPath)
	}

	if len(extracted) == 0 && len(failed) == 0 {
		return nil, nil, qerrors.NewIngestionError(qerrors.CodeNoTabularFiles,
			fmt.Sprintf("archive %s contains no tabular files", filepath.Base(zipPath)), nil)
	}
	return extracted, failed, nil
}

func extractMember(member *zip.File, destPath string) error {
	src, err := member.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
