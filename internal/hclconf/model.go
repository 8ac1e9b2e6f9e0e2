package hclconf

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vk/multirelease/internal/options"
)

// File is the decoded form of a .multirelease.hcl run configuration.
type File struct {
	Workspace *WorkspaceBlock `hcl:"workspace,block"`
	Options   *OptionsBlock   `hcl:"options,block"`
	Packages  []*PackageBlock `hcl:"package,block"`
}

// WorkspaceBlock declares where units live.
type WorkspaceBlock struct {
	// Packages are doublestar globs over the workspace root, e.g.
	// "packages/*" or "libs/**".
	Packages []string `hcl:"packages,optional"`
	// Ignore removes matched unit locations from the run.
	Ignore []string `hcl:"ignore,optional"`
}

// OptionsBlock is the global options layer.
type OptionsBlock struct {
	SequentialInit    *bool      `hcl:"sequential_init,optional"`
	SequentialPrepare *bool      `hcl:"sequential_prepare,optional"`
	TagFormat         *string    `hcl:"tag_format,optional"`
	DryRun            *bool      `hcl:"dry_run,optional"`
	Deps              *DepsBlock `hcl:"deps,block"`
}

// PackageBlock overrides options for the units whose name or location
// matches its label (exact name, or doublestar glob against the location).
type PackageBlock struct {
	Pattern string `hcl:"pattern,label"`

	SequentialInit    *bool      `hcl:"sequential_init,optional"`
	SequentialPrepare *bool      `hcl:"sequential_prepare,optional"`
	TagFormat         *string    `hcl:"tag_format,optional"`
	DryRun            *bool      `hcl:"dry_run,optional"`
	Deps              *DepsBlock `hcl:"deps,block"`
}

// DepsBlock carries the dependency policies.
type DepsBlock struct {
	Bump    *string `hcl:"bump,optional"`
	Release *string `hcl:"release,optional"`
	OnFail  *string `hcl:"on_fail,optional"`
}

// GlobalOverrides translates the options block into an option layer.
func (f *File) GlobalOverrides() options.Overrides {
	if f == nil || f.Options == nil {
		return options.Overrides{}
	}
	return toOverrides(
		f.Options.SequentialInit, f.Options.SequentialPrepare,
		f.Options.TagFormat, f.Options.DryRun, f.Options.Deps,
	)
}

// UnitOverrides merges every package block matching the unit (in file
// order, later blocks winning) into one option layer.
func (f *File) UnitOverrides(name, dir string) options.Overrides {
	var merged options.Overrides
	if f == nil {
		return merged
	}
	for _, blk := range f.Packages {
		if !blk.matches(name, dir) {
			continue
		}
		layer := toOverrides(blk.SequentialInit, blk.SequentialPrepare, blk.TagFormat, blk.DryRun, blk.Deps)
		merged = overlay(merged, layer)
	}
	return merged
}

func (b *PackageBlock) matches(name, dir string) bool {
	if b.Pattern == name {
		return true
	}
	ok, err := doublestar.Match(b.Pattern, filepath.ToSlash(dir))
	return err == nil && ok
}

func toOverrides(seqInit, seqPrepare *bool, tagFormat *string, dryRun *bool, deps *DepsBlock) options.Overrides {
	o := options.Overrides{
		SequentialInit:    seqInit,
		SequentialPrepare: seqPrepare,
		TagFormat:         tagFormat,
		DryRun:            dryRun,
	}
	if deps != nil {
		if deps.Bump != nil {
			p := options.BumpPolicy(*deps.Bump)
			o.DepsBump = &p
		}
		if deps.Release != nil {
			p := options.ReleasePolicy(*deps.Release)
			o.DepsRelease = &p
		}
		if deps.OnFail != nil {
			p := options.FailPolicy(*deps.OnFail)
			o.DepsOnFail = &p
		}
	}
	return o
}

// overlay applies the non-nil fields of top over base.
func overlay(base, top options.Overrides) options.Overrides {
	if top.SequentialInit != nil {
		base.SequentialInit = top.SequentialInit
	}
	if top.SequentialPrepare != nil {
		base.SequentialPrepare = top.SequentialPrepare
	}
	if top.DepsBump != nil {
		base.DepsBump = top.DepsBump
	}
	if top.DepsRelease != nil {
		base.DepsRelease = top.DepsRelease
	}
	if top.DepsOnFail != nil {
		base.DepsOnFail = top.DepsOnFail
	}
	if top.TagFormat != nil {
		base.TagFormat = top.TagFormat
	}
	if top.DryRun != nil {
		base.DryRun = top.DryRun
	}
	return base
}
