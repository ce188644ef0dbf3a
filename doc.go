// Package apischema serves typed Go functions as JSON HTTP endpoints and
// records enough metadata about them for the schemagen package to build a
// language-agnostic API schema.
//
//	app := apischema.NewApp()
//	pets := app.Service("pets")
//	pets.Register("Create", apischema.NewHandler(createPet))
//	pets.Register("List", apischema.NewHandler(listPets).Readonly())
//	http.ListenAndServe(":8080", app.Handler())
//
// Each endpoint is mounted at /{service path}/{name}. Readonly endpoints
// are served over GET with the request decoded from the query string;
// all others take a JSON body over POST.
package apischema
