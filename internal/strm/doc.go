// Package strm maps a transferred library entry onto a .strm pointer file.
//
// A pointer file lives at <root>/<target_dir>/[Season N/]<name>.strm and its
// single line of content is <remote_base><target_dir>[Season N/]<file>, so a
// media server scanning the strm tree streams the file from the remote
// (alist) mount instead of local storage.
//
// Planning is pure string work (SeasonFolder, Content, Dir, FileName, Build);
// Writer performs the filesystem side effects.
package strm
