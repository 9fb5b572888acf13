package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// Типы файлов, разрешённые для CV.
var allowedCVTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"image/jpeg": {},
	"image/png":  {},
}

// Типы файлов, разрешённые для вложений к сдачам.
var allowedAttachmentTypes = map[string]struct{}{
	"application/pdf": {},
	"application/zip": {},
	"image/jpeg":      {},
	"image/png":       {},
	"image/gif":       {},
	"video/mp4":       {},
}

// FileStorage отвечает за локальное файловое хранилище загрузок.
type FileStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewFileStorage создаёт файловое хранилище.
func NewFileStorage(rootPath string, maxUploadMB int64) (*FileStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &FileStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save сохраняет файл с проверкой типа по сигнатуре содержимого
// и возвращает относительный путь, MIME-тип и размер.
// Тип определяется по первым байтам, а не по расширению имени.
func (s *FileStorage) Save(ctx context.Context, userID uuid.UUID, kind, originalName string, r io.Reader) (string, string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", "", 0, err
	}

	head := make([]byte, 262)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", "", 0, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	head = head[:n]

	kindInfo, err := filetype.Match(head)
	if err != nil {
		return "", "", 0, fmt.Errorf("storage: не удалось определить тип файла: %w", err)
	}
	mime := kindInfo.MIME.Value
	if mime == "" {
		return "", "", 0, fmt.Errorf("storage: неизвестный тип файла")
	}
	if err := checkAllowed(kind, mime); err != nil {
		return "", "", 0, err
	}

	safeName := sanitizeFilename(originalName)
	fileName := fmt.Sprintf("%s_%d%s", userID.String(), time.Now().UnixNano(), filepath.Ext(safeName))

	userDir := filepath.Join(s.rootPath, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", "", 0, fmt.Errorf("storage: не удалось создать каталог пользователя: %w", err)
	}

	targetPath := filepath.Join(userDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", "", 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	full := io.MultiReader(bytes.NewReader(head), r)
	limitedReader := io.LimitedReader{R: full, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limitedReader)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", "", 0, fmt.Errorf("storage: размер файла превышает лимит %d байт", s.maxUploadBytes)
	}

	if err := f.Close(); err != nil {
		return "", "", 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	relative := filepath.Join(userID.String(), fileName)
	return relative, mime, written, nil
}

// Open открывает сохранённый файл для чтения.
func (s *FileStorage) Open(relativePath string) (*os.File, error) {
	clean := filepath.Clean(relativePath)
	if strings.HasPrefix(clean, "..") {
		return nil, fmt.Errorf("storage: некорректный путь")
	}
	return os.Open(filepath.Join(s.rootPath, clean))
}

// Delete удаляет файл из хранилища.
func (s *FileStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, filepath.Clean(relativePath))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// checkAllowed проверяет MIME-тип по назначению файла.
func checkAllowed(kind, mime string) error {
	switch kind {
	case "cv":
		if _, ok := allowedCVTypes[mime]; !ok {
			return fmt.Errorf("storage: тип %s не подходит для CV", mime)
		}
	default:
		if _, ok := allowedAttachmentTypes[mime]; !ok {
			return fmt.Errorf("storage: тип %s не разрешён", mime)
		}
	}
	return nil
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "upload"
	}
	return name
}
