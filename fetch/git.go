package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/platformbuild/pbuild/prodinfo"
)

// cloneGit clones the repository into dir. The tag may name a tag or a
// branch; tags are tried first.
func cloneGit(ctx context.Context, s *prodinfo.VCSSource, dir string, progress io.Writer) error {
	opts := &git.CloneOptions{
		URL:      s.Repo,
		Progress: progress,
		Depth:    s.Depth,
	}
	if s.Tag == "" {
		_, err := git.PlainCloneContext(ctx, dir, false, opts)
		return err
	}

	opts.SingleBranch = true
	var errs []error
	for _, ref := range []plumbing.ReferenceName{
		plumbing.NewTagReferenceName(s.Tag),
		plumbing.NewBranchReferenceName(s.Tag),
	} {
		opts.ReferenceName = ref
		_, err := git.PlainCloneContext(ctx, dir, false, opts)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", ref, err))
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return rmErr
		}
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("clone %s at %q: %w", s.Repo, s.Tag, errors.Join(errs...))
}

// Revision describes the checked out revision of a git work tree: the tag
// pointing at HEAD if there is one, the short commit hash otherwise. It
// returns an empty string when dir is not a git work tree.
func Revision(dir string) string {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}

	tag := ""
	if iter, err := repo.Tags(); err == nil {
		iter.ForEach(func(ref *plumbing.Reference) error {
			target := ref.Hash()
			// Annotated tags point at a tag object.
			if obj, err := repo.TagObject(target); err == nil {
				if c, err := obj.Commit(); err == nil {
					target = c.Hash
				}
			}
			if target == head.Hash() {
				tag = ref.Name().Short()
				return storer.ErrStop
			}
			return nil
		})
	}
	if tag != "" {
		return tag
	}

	if _, err := repo.CommitObject(head.Hash()); err != nil {
		return ""
	}
	return head.Hash().String()[:12]
}
