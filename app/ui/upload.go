package ui

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"
)

const additionalFilesSelector = `input[id*="file-upload-additional-files"]`

// Uploader injects local files into file inputs
type Uploader struct {
	page playwright.Page
}

// NewUploader makes Uploader for the page
func NewUploader(page playwright.Page) *Uploader {
	return &Uploader{page: page}
}

// Upload sets the file of the input associated with a label text or an input id
func (u *Uploader) Upload(labelOrID, path string) error {
	abs, err := existingFile(path)
	if err != nil {
		return err
	}
	anchor := u.page.Locator("label:has-text(" + q(labelOrID) + `),input[id=` + q(labelOrID) + `]`)
	if n, err := anchor.Count(); err != nil || n == 0 {
		return fmt.Errorf("upload target %q: %w", labelOrID, ErrNotFound)
	}
	input := anchor.First().Locator("..").Locator(`input[type="file"][id]`).Last()
	if err := input.SetInputFiles(abs); err != nil {
		return fmt.Errorf("upload %s to %q: %w", filepath.Base(abs), labelOrID, err)
	}
	log.Printf("[DEBUG] uploaded %s to %q", filepath.Base(abs), labelOrID)
	u.page.WaitForTimeout(pauseLong)
	return nil
}

// UploadMany fills the "additional files" inputs. Existing inputs are used first, for each remaining
// file "Add More" is clicked and the new last input gets the file.
func (u *Uploader) UploadMany(paths []string) error {
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := existingFile(p)
		if err != nil {
			return err
		}
		files = append(files, abs)
	}

	inputs := u.page.Locator(additionalFilesSelector)
	have, err := inputs.Count()
	if err != nil || have == 0 {
		return fmt.Errorf("additional file inputs: %w", ErrNotFound)
	}

	for i, f := range files {
		input := inputs.Nth(i)
		if i >= have {
			if err := u.page.Locator(`button:has-text("Add More")`).First().Click(); err != nil {
				return fmt.Errorf("add more file inputs: %w", err)
			}
			u.page.WaitForTimeout(pauseLong)
			input = inputs.Last()
		}
		if err := input.SetInputFiles([]string{f}); err != nil {
			return fmt.Errorf("upload file %d/%d %s: %w", i+1, len(files), filepath.Base(f), err)
		}
		u.page.WaitForTimeout(pauseLong)
	}
	return nil
}

func existingFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("upload file %s: %w", path, err)
	}
	if st.IsDir() {
		return "", fmt.Errorf("upload file %s is a directory", path)
	}
	return abs, nil
}
