package dumper

// commonFiles is Phase 2's fixed DownloadWorker seed (spec §4.6 Phase 2).
// The source list repeats ".git/hooks/applypatch-msg.sample" three times;
// the duplicate is elided here (see SPEC_FULL.md C.1).
var commonFiles = []string{
	".gitignore",
	".git/COMMIT_EDITMSG",
	".git/description",
	".git/hooks/applypatch-msg.sample",
	".git/hooks/commit-msg.sample",
	".git/hooks/post-commit.sample",
	".git/hooks/post-receive.sample",
	".git/hooks/post-update.sample",
	".git/hooks/pre-applypatch.sample",
	".git/hooks/pre-commit.sample",
	".git/hooks/pre-push.sample",
	".git/hooks/pre-rebase.sample",
	".git/hooks/pre-receive.sample",
	".git/hooks/prepare-commit-msg.sample",
	".git/hooks/update.sample",
	".git/index",
	".git/info/exclude",
	".git/objects/info/packs",
}

// refSeedPaths is Phase 3's fixed FindRefsWorker seed (spec §4.6 Phase 3):
// HEAD variants, config, info/refs, and the common logs/refs paths for
// master, origin, stash, and Magit's work-in-progress refs.
var refSeedPaths = []string{
	".git/FETCH_HEAD",
	".git/HEAD",
	".git/ORIG_HEAD",
	".git/config",
	".git/info/refs",
	".git/logs/HEAD",
	".git/logs/refs/heads/master",
	".git/logs/refs/remotes/origin/HEAD",
	".git/logs/refs/remotes/origin/master",
	".git/logs/refs/stash",
	".git/packed-refs",
	".git/refs/heads/master",
	".git/refs/remotes/origin/HEAD",
	".git/refs/remotes/origin/master",
	".git/refs/stash",
	".git/refs/wip/wtree/refs/heads/master", // Magit
	".git/refs/wip/index/refs/heads/master", // Magit
}
