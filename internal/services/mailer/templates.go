package mailer

import "fmt"

// OTPSubject is the subject line for verification mail
const OTPSubject = "CodeGPT - Email Verification Required"

// OTPBody renders the verification email for a code
func OTPBody(code string) string {
	return fmt.Sprintf(otpTemplate, code)
}

const otpTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Email Verification</title>
</head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f5f5f5;">
	<div style="max-width: 600px; margin: 0 auto; background-color: #ffffff;">
		<div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 40px 30px; text-align: center;">
			<h1 style="color: #ffffff; margin: 0; font-size: 28px; font-weight: 300;">CodeGPT</h1>
			<p style="color: #e8eaf6; margin: 10px 0 0 0; font-size: 16px;">Email Verification</p>
		</div>
		<div style="padding: 40px 30px;">
			<h2 style="color: #333333; font-size: 24px; margin: 0 0 20px 0; font-weight: 400;">Verify Your Email Address</h2>
			<p style="color: #666666; font-size: 16px; line-height: 1.6; margin: 0 0 30px 0;">
				To complete your registration and secure your account, please use the verification code below:
			</p>
			<div style="background-color: #f8f9fa; border: 2px dashed #dee2e6; border-radius: 8px; padding: 30px; text-align: center; margin: 30px 0;">
				<p style="color: #495057; font-size: 14px; margin: 0 0 10px 0; text-transform: uppercase; font-weight: 600;">Verification Code</p>
				<div style="font-size: 36px; font-weight: 700; color: #007bff; letter-spacing: 8px; font-family: 'Courier New', monospace;">%s</div>
			</div>
			<p style="color: #999999; font-size: 14px; margin: 30px 0 0 0;">
				This code expires in 10 minutes. If you did not request it, you can safely ignore this email.
			</p>
		</div>
	</div>
</body>
</html>`
