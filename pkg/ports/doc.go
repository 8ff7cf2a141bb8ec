/*
Package ports declares the collaborator contracts the engine consumes:
version control, the hosting platform, the package registry and the API
compatibility checker. Adapters under pkg/adapters implement them; tests
substitute fakes.
*/
package ports
