package hook

// Plugin augments a client during NewClient, after configuration is resolved
// and before the client is returned. Plugins run in the order listed in
// Config.Plugins; the first error aborts construction.
//
// A plugin typically installs a TokenSource or inspects the endpoint:
//
//	func SessionAuth(store *hook.TokenStore) hook.Plugin {
//		return func(c *hook.Client) error {
//			c.SetTokenSource(store)
//			return nil
//		}
//	}
type Plugin func(*Client) error
