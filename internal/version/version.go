// 包 version：构建时通过 -ldflags "-X tzchains/internal/version.Commit=..." 注入
package version

var Commit = "dev"
