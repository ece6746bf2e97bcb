package auth

import "fmt"

func magicLinkEmail(link string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; color: #0f172a;">
	<h2>Sign in</h2>
	<p>Click the button below to sign in. This link expires in 15 minutes.</p>
	<p><a href="%s" style="display:inline-block;padding:12px 18px;background:#0f172a;color:#fff;text-decoration:none;border-radius:6px;">Sign in</a></p>
</div>`, link)
}

func passwordResetEmail(link string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; color: #0f172a;">
	<h2>Password reset</h2>
	<p>We received a request to reset your password. Click the button below to set a new one. This link expires in 30 minutes.</p>
	<p><a href="%s" style="display:inline-block;padding:12px 18px;background:#0f172a;color:#fff;text-decoration:none;border-radius:6px;">Reset password</a></p>
	<p>If you didn't request this, you can ignore this email.</p>
</div>`, link)
}

func invitationEmail(link string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; color: #0f172a;">
	<h2>You've been invited!</h2>
	<p>You've been invited to join the platform. Click the button below to set up your password and activate your account.</p>
	<p>This invitation link expires in 7 days.</p>
	<p><a href="%s" style="display:inline-block;padding:12px 18px;background:#0f172a;color:#fff;text-decoration:none;border-radius:6px;">Set up your account</a></p>
	<p style="color:#64748b;font-size:14px;margin-top:24px;">If you didn't expect this invitation, you can safely ignore this email.</p>
</div>`, link)
}
