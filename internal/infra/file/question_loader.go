// Package file loads question banks from JSON files on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"applicant-assessment-service/internal/domain"
)

// QuestionLoader resolves bank ids to files. A bank id maps to <dir>/<id>.json
// unless an explicit path is registered for it.
type QuestionLoader struct {
	dir   string
	paths map[string]string
}

func NewQuestionLoader(dir string, paths map[string]string) *QuestionLoader {
	copied := make(map[string]string, len(paths))
	for id, p := range paths {
		copied[id] = p
	}
	return &QuestionLoader{dir: dir, paths: copied}
}

func (l *QuestionLoader) LoadBank(_ context.Context, bankID string) (domain.QuestionBank, error) {
	path, ok := l.paths[bankID]
	if !ok {
		if l.dir == "" || strings.ContainsAny(bankID, `/\`) || strings.Contains(bankID, "..") {
			return domain.QuestionBank{}, fmt.Errorf("%w: %s", domain.ErrQuestionBankNotFound, bankID)
		}
		path = filepath.Join(l.dir, bankID+".json")
	}
	bank, err := LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.QuestionBank{}, fmt.Errorf("%w: %s", domain.ErrQuestionBankNotFound, bankID)
		}
		return domain.QuestionBank{}, err
	}
	bank.ID = bankID
	return bank, nil
}

// LoadFile reads one bank file.
func LoadFile(path string) (domain.QuestionBank, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("read question bank %s: %w", path, err)
	}
	bank, err := domain.DecodeQuestionBank(raw)
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("%s: %w", path, err)
	}
	if bank.ID == "" {
		bank.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return bank, nil
}
