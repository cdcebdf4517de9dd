// Package files locates line-list workbooks and CSV exports on disk.
//
//	discovery := files.NewDiscovery(paths.DataDir)
//	latest, err := discovery.Latest("incoming")
package files
