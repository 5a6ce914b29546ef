package auth

import "github.com/BloodyDerby/biosentiers-backend/internal/validation"

// userLoginSchema valida la variante e-mail/password.
func userLoginSchema() *validation.Rule {
	return validation.Parallel(
		validation.Field("/email",
			validation.Required(),
			validation.Type("string"),
			validation.Email(),
		),
		validation.Field("/password",
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
		),
	)
}

// installationLoginSchema valida la variante HMAC. La clave /installation ya
// decidió la clasificación; acá solo se valida su forma.
func installationLoginSchema() *validation.Rule {
	return validation.Parallel(
		validation.Field("/installation",
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
		),
		validation.Field("/nonce",
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
		),
		validation.Field("/date",
			validation.Required(),
			validation.Type("string"),
			validation.ISO8601(),
		),
		validation.Field("/authorization",
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
		),
	)
}

// invitationSchema valida el pedido de invitación de un administrador.
func invitationSchema(emailAvailable validation.CheckFunc, roles []any) *validation.Rule {
	return validation.Parallel(
		validation.Field("/email",
			validation.Required(),
			validation.Type("string"),
			validation.NotEmpty(),
			validation.Email(),
			validation.Custom(emailAvailable),
		),
		validation.Field("/role",
			validation.While(validation.IsSet()),
			validation.Type("string"),
			validation.Inclusion(roles...),
		),
		validation.Field("/firstName",
			validation.While(validation.IsSet()),
			validation.Type("string"),
			validation.NotBlank(),
			validation.StringLength(1, 20),
		),
		validation.Field("/lastName",
			validation.While(validation.IsSet()),
			validation.Type("string"),
			validation.NotBlank(),
			validation.StringLength(1, 20),
		),
	)
}

// passwordResetSchema valida el pedido de reseteo.
func passwordResetSchema() *validation.Rule {
	return validation.Parallel(
		validation.Field("/email",
			validation.Required(),
			validation.Type("string"),
			validation.NotEmpty(),
			validation.Email(),
		),
	)
}
