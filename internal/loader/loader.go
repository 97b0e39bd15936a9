package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/molder/pkg/rules"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Result holds the declarations found in a models directory.
type Result struct {
	Models    []Declaration
	CUEFiles  []string
	YAMLFiles []string
}

// FileCount is the number of model files read.
func (r *Result) FileCount() int {
	return len(r.CUEFiles) + len(r.YAMLFiles)
}

// Registry registers every declaration on a fresh registry.
func (r *Result) Registry() (*rules.Registry, error) {
	reg := rules.NewRegistry()
	if err := Register(reg, r.Models); err != nil {
		return nil, err
	}
	return reg, nil
}

// LoadDir reads every *.cue, *.yaml and *.yml file under dir.
//
// CUE files are loaded as one instance, so models may be split across
// files and use CUE references. YAML files are read one by one in path
// order. A model declared twice is an error.
func LoadDir(dir string, mode LoadMode) (*Result, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{errorf(ErrCodeNotFound, Position{}, "models directory not found: %s", dir)}
	}
	if err != nil {
		return nil, []error{errorf(ErrCodeNotFound, Position{}, "error accessing models directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, []error{errorf(ErrCodeNotFound, Position{}, "not a directory: %s", dir)}
	}

	cueFiles, yamlFiles, err := FindModelFiles(dir)
	if err != nil {
		return nil, []error{errorf(ErrCodeScanError, Position{}, "error scanning directory: %v", err)}
	}
	if len(cueFiles)+len(yamlFiles) == 0 {
		return nil, []error{errorf(ErrCodeNoFiles, Position{}, "no model files found in %s", dir)}
	}

	result := &Result{CUEFiles: cueFiles, YAMLFiles: yamlFiles}
	var errs []error
	fail := func(more []error) bool {
		errs = append(errs, more...)
		return len(errs) > 0 && mode == LoadModeFailFast
	}

	if len(cueFiles) > 0 {
		decls, cueErrs := loadCUEDir(dir, mode)
		result.Models = append(result.Models, decls...)
		if fail(cueErrs) {
			return result, errs
		}
	}

	for _, path := range yamlFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			if fail([]error{errorf(ErrCodeLoadFailed, Position{File: path}, "reading file: %v", err)}) {
				return result, errs
			}
			continue
		}
		decls, yamlErrs := DecodeYAML(data, path, mode)
		result.Models = append(result.Models, decls...)
		if fail(yamlErrs) {
			return result, errs
		}
	}

	if fail(CheckDuplicates(result.Models)) {
		return result, errs
	}
	if len(result.Models) == 0 && len(errs) == 0 {
		errs = append(errs, errorf(ErrCodeGeneric, Position{}, "no models found in %s", dir))
	}
	return result, errs
}

func loadCUEDir(dir string, mode LoadMode) ([]Declaration, []error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{errorf(ErrCodeLoadFailed, Position{}, "no CUE instances loaded")}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{errorf(ErrCodeLoadFailed, Position{}, "loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return DecodeCUE(value, mode)
}

// CheckDuplicates reports every model declared more than once.
func CheckDuplicates(decls []Declaration) []error {
	var errs []error
	seen := make(map[string]Position, len(decls))
	for _, d := range decls {
		if first, dup := seen[d.Name]; dup {
			errs = append(errs, errorf(ErrCodeDuplicateModel, d.Pos, "model %s already declared at %s", d.Name, first))
			continue
		}
		seen[d.Name] = d.Pos
	}
	return errs
}

// FindModelFiles walks dir and returns CUE and YAML file paths, sorted.
func FindModelFiles(dir string) (cueFiles, yamlFiles []string, err error) {
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".cue":
			cueFiles = append(cueFiles, path)
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(cueFiles)
	sort.Strings(yamlFiles)
	return cueFiles, yamlFiles, nil
}
