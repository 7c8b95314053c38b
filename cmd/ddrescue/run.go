package main

import (
	"fmt"
	"os"

	"github.com/mruffalo/ddrescue-sub000/internal/block"
	"github.com/mruffalo/ddrescue-sub000/internal/domain"
	"github.com/mruffalo/ddrescue-sub000/internal/posio"
	"github.com/mruffalo/ddrescue-sub000/internal/rerrors"
	"github.com/mruffalo/ddrescue-sub000/internal/rlog"
	"github.com/mruffalo/ddrescue-sub000/internal/sigflag"
	"github.com/mruffalo/ddrescue-sub000/internal/statusmap"
	"github.com/mruffalo/ddrescue-sub000/rescue"
)

// runRescue implements the default (non -F/-g) action: rescue.Engine
// driven end to end over the three positional arguments.
func runRescue(f *cliFlags, args []string) error {
	if f.fillTypes != "" {
		return rerrors.Fatalf("fill mode (-F) is not implemented in this build")
	}
	if f.generate {
		return rerrors.Fatalf("generate mode (-g) is not implemented in this build")
	}
	if f.quiet {
		rlog.SetLevel(rlog.ERROR)
	} else if f.verbose {
		rlog.SetLevel(rlog.DEBUG)
	}

	opt, err := f.toOptions()
	if err != nil {
		return rerrors.Fatal(err)
	}
	infile, outfile := args[0], args[1]
	mapfilePath := outfile + ".map" // ddrescue's implicit default
	if len(args) == 3 {
		mapfilePath = args[2]
	}
	opt.MapfilePath = mapfilePath

	src, err := rescue.NewFileSource(infile, opt.DirectIO)
	if err != nil {
		return rerrors.Fatal(err)
	}
	defer src.Close()

	if !f.forceOutput {
		if fi, statErr := os.Stat(outfile); statErr == nil && !fi.Mode().IsRegular() {
			return rerrors.Fatalf("output %q exists and is not a regular file; use -f to force", outfile)
		}
	}
	dst, err := rescue.NewFileDest(outfile, opt.SynchronousWrites, opt.Truncate)
	if err != nil {
		return rerrors.Fatal(err)
	}
	defer dst.Close()
	if opt.Preallocate {
		if size, ok := src.Size(); ok && size > 0 {
			_ = posio.Preallocate(dst.FD(), size)
		}
	}

	sm, _, err := loadOrCreateMap(mapfilePath, src)
	if err != nil {
		return err
	}
	sm.SetFilename(mapfilePath)

	if isize, ok := src.Size(); ok {
		if opt.VerifySize {
			if sm.Extent().Size != 0 && sm.Extent().End() != isize {
				return rerrors.Fatalf("input file size (%d) does not match mapfile extent (%d)", isize, sm.Extent().End())
			}
		}
		if !f.noDomainGrow {
			sm.ExtendToSize(isize)
		}
	}

	dom, err := buildDomain(f, sm)
	if err != nil {
		return err
	}

	if opt.ResetNonTrimmedAndScraped {
		sm.Reclassify(block.NonTrimmed, block.NonTried, dom)
		sm.Reclassify(block.NonScraped, block.NonTried, dom)
	}
	if opt.Retrim {
		sm.Reclassify(block.NonScraped, block.NonTrimmed, dom)
		sm.Reclassify(block.BadSector, block.NonTrimmed, dom)
	}

	stop := sigflag.Watch()
	defer stop()

	eng := rescue.NewEngine(src, dst, dom, sm, opt)
	code := eng.Run()
	if code != rescue.ExitOK {
		return rerrors.WithCode(code, fmt.Errorf("rescue finished with exit code %d", code))
	}
	return nil
}

// loadOrCreateMap loads an existing mapfile, or builds a fresh blank one
// sized from the source if none exists yet.
func loadOrCreateMap(path string, src *rescue.FileSource) (sm *statusmap.StatusMap, isNew bool, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		sm, err = statusmap.Load(path)
		return sm, false, err
	}
	size, _ := src.Size()
	return statusmap.NewBlank(size), true, nil
}

// buildDomain applies -i, -s, -m and -C (spec.md §6) to produce the Domain
// the engine is permitted to touch. -o is not applied: every byte is
// written to the destination at the same offset it was read from.
func buildDomain(f *cliFlags, sm *statusmap.StatusMap) (*domain.Domain, error) {
	start := int64(0)
	if f.startIn != "" {
		v, err := parseSize(f.startIn)
		if err != nil {
			return nil, fmt.Errorf("-i: %w", err)
		}
		start = v
	}
	size := block.Max - start
	if f.maxSize != "" {
		v, err := parseSize(f.maxSize)
		if err != nil {
			return nil, fmt.Errorf("-s: %w", err)
		}
		size = v
	}
	dom := domain.New(start, size)

	if f.domainFile != "" {
		restrict, err := statusmap.Load(f.domainFile)
		if err != nil {
			return nil, fmt.Errorf("-m: %w", err)
		}
		var finished []block.Block
		for _, sb := range restrict.Sblocks() {
			if sb.Status == block.Finished {
				finished = append(finished, sb.Block)
			}
		}
		restrictDom := domain.FromBlocks(finished)
		dom = dom.Intersect(restrictDom)
	}

	if f.noDomainGrow {
		ext := sm.Extent()
		if ext.Size > 0 {
			dom.Crop(ext)
		}
	}
	return dom, nil
}

