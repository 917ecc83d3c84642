// Provides platform-appropriate paths for the build orchestrator.
//
// Cache paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. Bundle output defaults live under the project's own
// target directory so that artifacts never escape the project root unless the
// user asks for it.
package paths
