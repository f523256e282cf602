package app

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"filecommand-api/internal/domain"
	"filecommand-api/internal/infra/filesystem"
	"filecommand-api/internal/log"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Operations run in this order regardless of payload order.
var operationOrder = []string{
	"delete", "copy", "move", "rename", "newfolder", "newfile", "editfile", "upload",
}

type ProcessorOptions struct {
	DenyPattern    *regexp.Regexp
	TextExtensions []string
}

// FileProcessor executes one request's file commands. Every failure is
// recorded as an error message; nothing panics or returns an error to the caller.
type FileProcessor struct {
	driver   *filesystem.LocalDriver
	opts     ProcessorOptions
	log      *log.Logger
	onChange func(storage string)

	data     domain.FileData
	uploads  map[string]domain.Upload
	messages []string
	changed  map[string]bool
}

func NewFileProcessor(driver *filesystem.LocalDriver, opts ProcessorOptions, logger *log.Logger, onChange func(storage string)) *FileProcessor {
	return &FileProcessor{
		driver:   driver,
		opts:     opts,
		log:      logger,
		onChange: onChange,
		changed:  make(map[string]bool),
	}
}

// Start loads the command payload. The payload is read, never modified.
func (p *FileProcessor) Start(data domain.FileData, uploads map[string]domain.Upload) {
	p.data = data
	p.uploads = uploads
	p.messages = nil
}

func (p *FileProcessor) ErrorMessages() []string {
	return p.messages
}

type commandArgs struct {
	Data      string
	Target    string
	Conflict  domain.ConflictMode
	Recursive bool
}

type operation func(args commandArgs) (any, error)

func (p *FileProcessor) operations() map[string]operation {
	return map[string]operation{
		"delete":    p.delete,
		"copy":      p.copy,
		"move":      p.move,
		"rename":    p.rename,
		"newfolder": p.newFolder,
		"newfile":   p.newFile,
		"editfile":  p.editFile,
		"upload":    p.upload,
	}
}

// ProcessData runs every command and returns one result per argument.
// Failed commands yield false.
func (p *FileProcessor) ProcessData() domain.FileResults {
	results := domain.FileResults{}
	ops := p.operations()

	var unknown []string
	for op := range p.data {
		if _, ok := ops[op]; !ok {
			unknown = append(unknown, op)
		}
	}
	sort.Strings(unknown)
	for _, op := range unknown {
		p.addError(op, -1, fmt.Errorf("unknown file operation"))
	}

	for _, op := range operationOrder {
		args, ok := p.data[op]
		if !ok {
			continue
		}
		for i, raw := range args {
			results[op] = append(results[op], p.run(op, i, raw, ops[op]))
		}
	}

	for storage := range p.changed {
		if p.onChange != nil {
			p.onChange(storage)
		}
	}
	p.changed = make(map[string]bool)

	return results
}

func (p *FileProcessor) run(op string, i int, raw any, fn operation) (result any) {
	defer func() {
		if r := recover(); r != nil {
			p.addError(op, i, fmt.Errorf("internal error: %v", r))
			result = false
		}
	}()

	args, err := parseArgs(raw)
	if err != nil {
		p.addError(op, i, err)
		return false
	}
	result, err = fn(args)
	if err != nil {
		p.addError(op, i, err)
		return false
	}
	return result
}

func (p *FileProcessor) addError(op string, i int, err error) {
	p.log.WithFields(logrus.Fields{"operation": op, "index": i}).Warn(err.Error())
	p.messages = append(p.messages, fmt.Sprintf("%s: %v", op, err))
}

func parseArgs(raw any) (commandArgs, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return commandArgs{}, errors.New("malformed arguments, expected an object")
	}

	mode, _ := m["conflictMode"].(string)
	conflict, err := domain.ParseConflictMode(mode)
	if err != nil {
		return commandArgs{}, err
	}

	return commandArgs{
		Data:      stringArg(m["data"]),
		Target:    stringArg(m["target"]),
		Conflict:  conflict,
		Recursive: boolArg(m["recursive"]),
	}, nil
}

func stringArg(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64, int, int64:
		return fmt.Sprint(t)
	}
	return ""
}

func boolArg(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "1" || strings.EqualFold(t, "true")
	case float64:
		return t != 0
	}
	return false
}

func (p *FileProcessor) markChanged(storages ...string) {
	for _, s := range storages {
		p.changed[s] = true
	}
}

func (p *FileProcessor) checkName(name string, isFile bool) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("invalid name %q", name)
	}
	if isFile && p.opts.DenyPattern != nil && p.opts.DenyPattern.MatchString(name) {
		return fmt.Errorf("file name %q is not allowed", name)
	}
	return nil
}

func (p *FileProcessor) isTextFile(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	for _, allowed := range p.opts.TextExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// resource is what a successful command hands back: a File or a Folder.
func (p *FileProcessor) resource(storage, subPath string) (any, error) {
	isDir, err := p.driver.IsDir(storage, subPath)
	if err != nil {
		return nil, err
	}
	if isDir {
		return p.driver.Folder(storage, subPath)
	}
	return p.driver.File(storage, subPath)
}

func (p *FileProcessor) targetFolder(id string) (string, string, error) {
	storage, dir, err := domain.SplitIdentifier(id)
	if err != nil {
		return "", "", err
	}
	if _, err := p.driver.Folder(storage, dir); err != nil {
		return "", "", fmt.Errorf("target folder %s: %w", id, err)
	}
	return storage, dir, nil
}

// resolveConflict decides the final path when target already exists.
// replace reports that the existing target has to be swapped out once the
// new content is in place.
func (p *FileProcessor) resolveConflict(storage, target string, mode domain.ConflictMode) (final string, replace bool, err error) {
	if !p.driver.Exists(storage, target) {
		return target, false, nil
	}
	switch mode {
	case domain.ConflictReplace:
		return target, true, nil
	case domain.ConflictRename:
		return p.uniquePath(storage, target), false, nil
	}
	return "", false, fmt.Errorf("%s: %w", domain.CombinedIdentifier(storage, target), domain.ErrExists)
}

// checkNesting refuses a target inside the source, and a replaced target
// that contains the source. Paths are compared on disk so overlapping
// mounts are caught too.
func (p *FileProcessor) checkNesting(srcStorage, srcPath, dstStorage, target string, replace bool) error {
	src, err := p.driver.GetRealPath(srcStorage, srcPath)
	if err != nil {
		return err
	}
	dst, err := p.driver.GetRealPath(dstStorage, target)
	if err != nil {
		return err
	}
	sep := string(filepath.Separator)
	if strings.HasPrefix(dst, src+sep) {
		return fmt.Errorf("cannot place %s inside itself", domain.CombinedIdentifier(srcStorage, srcPath))
	}
	if replace && strings.HasPrefix(src, dst+sep) {
		return fmt.Errorf("cannot replace %s, it contains %s",
			domain.CombinedIdentifier(dstStorage, target), domain.CombinedIdentifier(srcStorage, srcPath))
	}
	return nil
}

// siblingPath is a hidden, unused name next to target.
func siblingPath(target, suffix string) string {
	return path.Join(path.Dir(target), fmt.Sprintf(".%s.%s.%s", path.Base(target), uuid.NewString()[:8], suffix))
}

// writeReplacing lets write produce the new content under a temporary name,
// then swaps it with the existing target. The old target is removed only
// after the swap. A failed write leaves the target untouched; the partial
// temporary copy is removed when discard is set.
func (p *FileProcessor) writeReplacing(storage, target string, discard bool, write func(dst string) error) error {
	tmp := siblingPath(target, "tmp")
	if err := write(tmp); err != nil {
		if discard && p.driver.Exists(storage, tmp) {
			if derr := p.driver.Delete(storage, tmp); derr != nil {
				p.log.Warn("Cannot remove %s: %v", domain.CombinedIdentifier(storage, tmp), derr)
			}
		}
		return err
	}

	backup := siblingPath(target, "bak")
	if err := p.driver.Rename(storage, target, backup); err != nil {
		return fmt.Errorf("replace %s, new content kept at %s: %w",
			domain.CombinedIdentifier(storage, target), domain.CombinedIdentifier(storage, tmp), err)
	}
	if err := p.driver.Rename(storage, tmp, target); err != nil {
		if rerr := p.driver.Rename(storage, backup, target); rerr != nil {
			p.log.Error("Cannot restore %s from %s: %v", target, backup, rerr)
		}
		return fmt.Errorf("replace %s, new content kept at %s: %w",
			domain.CombinedIdentifier(storage, target), domain.CombinedIdentifier(storage, tmp), err)
	}
	if err := p.driver.Delete(storage, backup); err != nil {
		p.log.Warn("Cannot remove replaced %s: %v", domain.CombinedIdentifier(storage, backup), err)
	}
	return nil
}

// place runs write against target directly, or through writeReplacing.
func (p *FileProcessor) place(storage, target string, replace, discard bool, write func(dst string) error) error {
	if replace {
		return p.writeReplacing(storage, target, discard, write)
	}
	return write(target)
}

// uniquePath appends _01 .. _99 before the extension, then a random suffix.
func (p *FileProcessor) uniquePath(storage, target string) string {
	dir := path.Dir(target)
	base := path.Base(target)
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)

	for i := 1; i <= 99; i++ {
		candidate := path.Join(dir, fmt.Sprintf("%s_%02d%s", name, i, ext))
		if !p.driver.Exists(storage, candidate) {
			return candidate
		}
	}
	return path.Join(dir, fmt.Sprintf("%s_%s%s", name, uuid.NewString()[:8], ext))
}

func (p *FileProcessor) delete(a commandArgs) (any, error) {
	storage, subPath, err := domain.SplitIdentifier(a.Data)
	if err != nil {
		return nil, err
	}
	isDir, err := p.driver.IsDir(storage, subPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Data, err)
	}
	if isDir && !a.Recursive {
		empty, err := p.driver.IsEmptyDir(storage, subPath)
		if err != nil {
			return nil, err
		}
		if !empty {
			return nil, fmt.Errorf("%s: %w", a.Data, domain.ErrFolderNotEmpty)
		}
	}
	if err := p.driver.Delete(storage, subPath); err != nil {
		return nil, err
	}
	p.markChanged(storage)
	return true, nil
}

func (p *FileProcessor) transfer(a commandArgs, move bool) (any, error) {
	srcStorage, srcPath, err := domain.SplitIdentifier(a.Data)
	if err != nil {
		return nil, err
	}
	if !p.driver.Exists(srcStorage, srcPath) {
		return nil, fmt.Errorf("%s: %w", a.Data, domain.ErrNotFound)
	}
	dstStorage, dstDir, err := p.targetFolder(a.Target)
	if err != nil {
		return nil, err
	}

	target := path.Join(dstDir, path.Base(srcPath))
	if srcStorage == dstStorage && path.Clean(srcPath) == target && a.Conflict != domain.ConflictRename {
		return nil, fmt.Errorf("source and target are the same: %s", a.Data)
	}
	if err := p.checkNesting(srcStorage, srcPath, dstStorage, target, false); err != nil {
		return nil, err
	}
	target, replace, err := p.resolveConflict(dstStorage, target, a.Conflict)
	if err != nil {
		return nil, err
	}
	if err := p.checkNesting(srcStorage, srcPath, dstStorage, target, replace); err != nil {
		return nil, err
	}

	// a failed move may already have removed part of the source, so its
	// temporary copy is kept
	err = p.place(dstStorage, target, replace, !move, func(dst string) error {
		if move {
			return p.driver.Move(srcStorage, srcPath, dstStorage, dst)
		}
		return p.driver.Copy(srcStorage, srcPath, dstStorage, dst)
	})
	if err != nil {
		return nil, err
	}

	if move {
		p.markChanged(srcStorage)
	}
	p.markChanged(dstStorage)
	return p.resource(dstStorage, target)
}

func (p *FileProcessor) copy(a commandArgs) (any, error) { return p.transfer(a, false) }
func (p *FileProcessor) move(a commandArgs) (any, error) { return p.transfer(a, true) }

func (p *FileProcessor) rename(a commandArgs) (any, error) {
	storage, oldPath, err := domain.SplitIdentifier(a.Data)
	if err != nil {
		return nil, err
	}
	isDir, err := p.driver.IsDir(storage, oldPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Data, err)
	}
	if err := p.checkName(a.Target, !isDir); err != nil {
		return nil, err
	}
	if path.Clean(oldPath) == "/" {
		return nil, errors.New("cannot rename the storage root")
	}

	newPath := path.Join(path.Dir(path.Clean(oldPath)), a.Target)
	if newPath == path.Clean(oldPath) {
		return p.resource(storage, newPath)
	}
	newPath, replace, err := p.resolveConflict(storage, newPath, a.Conflict)
	if err != nil {
		return nil, err
	}
	err = p.place(storage, newPath, replace, false, func(dst string) error {
		return p.driver.Rename(storage, oldPath, dst)
	})
	if err != nil {
		return nil, err
	}
	p.markChanged(storage)
	return p.resource(storage, newPath)
}

func (p *FileProcessor) newFolder(a commandArgs) (any, error) {
	if err := p.checkName(a.Data, false); err != nil {
		return nil, err
	}
	storage, dir, err := p.targetFolder(a.Target)
	if err != nil {
		return nil, err
	}
	target := path.Join(dir, a.Data)
	if p.driver.Exists(storage, target) {
		return nil, fmt.Errorf("%s: %w", domain.CombinedIdentifier(storage, target), domain.ErrExists)
	}
	if err := p.driver.CreateFolder(storage, target); err != nil {
		return nil, err
	}
	p.markChanged(storage)
	return p.resource(storage, target)
}

func (p *FileProcessor) newFile(a commandArgs) (any, error) {
	if err := p.checkName(a.Data, true); err != nil {
		return nil, err
	}
	storage, dir, err := p.targetFolder(a.Target)
	if err != nil {
		return nil, err
	}
	target := path.Join(dir, a.Data)
	if err := p.driver.CreateFile(storage, target); err != nil {
		return nil, fmt.Errorf("%s: %w", domain.CombinedIdentifier(storage, target), err)
	}
	p.markChanged(storage)
	return p.driver.File(storage, target)
}

func (p *FileProcessor) editFile(a commandArgs) (any, error) {
	storage, subPath, err := domain.SplitIdentifier(a.Target)
	if err != nil {
		return nil, err
	}
	if !p.isTextFile(subPath) {
		return nil, fmt.Errorf("%s is not an editable text file", a.Target)
	}
	if err := p.driver.SetContents(storage, subPath, a.Data); err != nil {
		return nil, fmt.Errorf("%s: %w", a.Target, err)
	}
	p.markChanged(storage)
	return p.driver.File(storage, subPath)
}

func (p *FileProcessor) upload(a commandArgs) (any, error) {
	up, ok := p.uploads[a.Data]
	if !ok || up.Open == nil {
		return nil, fmt.Errorf("no uploaded file for key %q", a.Data)
	}
	name := path.Base(strings.ReplaceAll(up.Name, "\\", "/"))
	if err := p.checkName(name, true); err != nil {
		return nil, err
	}
	storage, dir, err := p.targetFolder(a.Target)
	if err != nil {
		return nil, err
	}
	target, replace, err := p.resolveConflict(storage, path.Join(dir, name), a.Conflict)
	if err != nil {
		return nil, err
	}

	src, err := up.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", up.Name, err)
	}
	defer src.Close()

	err = p.place(storage, target, replace, true, func(dst string) error {
		return p.driver.SaveFile(storage, dst, src)
	})
	if err != nil {
		return nil, err
	}
	p.markChanged(storage)
	return p.driver.File(storage, target)
}
