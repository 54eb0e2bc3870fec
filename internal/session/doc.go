// Package session defines AgentContext, the explicit holder of the bound
// user id and device identity shared by the daemon components.
package session
