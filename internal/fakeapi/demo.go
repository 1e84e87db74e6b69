package fakeapi

import "github.com/dmitrijs2005/syncbridge/internal/client/models"

// Demo account credentials seeded by NewDemo.
const (
	DemoClientEmail    = "client@example.com"
	DemoDeveloperEmail = "dev@example.com"
	DemoPassword       = "password"
	DemoLicenseKey     = "DEMO-LICENSE-0001"
)

// NewDemo returns a server seeded with a client, a developer, one spare
// license key and a few forms in different states.
func NewDemo(opts ...Option) *Server {
	s := New(opts...)

	clientID := s.AddUser(DemoClientEmail, DemoPassword, "Demo Client", models.RoleClient)
	devID := s.AddUser(DemoDeveloperEmail, DemoPassword, "Demo Developer", models.RoleDeveloper)
	s.AddLicense(DemoLicenseKey)

	s.AddForm(clientID, models.FormInput{
		Title:        "Landing page",
		Message:      "Static landing page with a contact form",
		Budget:       "500",
		ExpectedTime: "2 weeks",
	}, models.FormStatusPreview)

	shop := s.AddForm(clientID, models.FormInput{
		Title:        "Online shop",
		Message:      "Catalogue, cart and checkout",
		Budget:       "5000",
		ExpectedTime: "3 months",
	}, models.FormStatusProcessing)
	s.SetForm(shop, func(f *models.Form) { f.DeveloperID = &devID })
	s.AddFunction(shop, "Product catalogue", "must")
	s.AddFunction(shop, "Checkout", "must")
	s.AddNonfunction(shop, "Page load under 2s", "high")

	s.AddForm(clientID, models.FormInput{
		Title:        "Mobile app",
		Message:      "iOS and Android client for the shop",
		Budget:       "8000",
		ExpectedTime: "6 months",
	}, models.FormStatusAvailable)

	return s
}
