package service

const classificationPrompt = `You are an expert at telling receipts apart from other documents.

Look at the provided image(s) and decide whether the document is a purchase receipt (a record of a completed payment listing a merchant and amounts). Invoices, menus, letters, forms, photos of anything else and unreadable documents are not receipts.

Output Format: Your response MUST be a single JSON object of the form {"receipt_or_not": "yes"} or {"receipt_or_not": "no"}. Do not include any other text.

Here are the images of the document:
`

const extractionPrompt = `You are an expert at extracting information from receipts and structuring it according to a defined JSON schema.

The JSON object you produce has these fields:

  merchant_name   string or null  - the name of the merchant/vendor
  total_amount    number or null  - the total amount of the receipt
  currency        string or null  - currency of the total amount (e.g. USD, EUR)
  payment_method  string or null  - payment method used (e.g. Credit Card, Cash)
  category        string or null  - automatically assigned expense category
  purchased_at    string or null  - date and time of purchase, RFC 3339 or YYYY-MM-DD
  line_items      array           - individual items purchased, each with:
      description string or null
      quantity    number or null
      unit_price  number or null
      total       number or null

Your task is to analyze the provided receipt (a single image or a set of images) and extract the relevant information.

Instructions for extraction and missing data handling:

    1. Strictly adhere to the schema above.

    2. If you find the corresponding data on the receipt, populate the field with the extracted value. If a field's data is not present on the receipt, set its value to null.

    3. Ensure currency defaults to "USD" if not explicitly found, but use the actual currency when another one is detected.

    4. Extract all individual line items. If quantity and unit_price are clearly identifiable for a line item, include them; otherwise set them to null. If no individual line items can be extracted, set line_items to an empty array: [].

    5. If the uploaded document is not a receipt, is unreadable, or no data can be confidently extracted at all, return an empty JSON object: {}.

Output Format: Your response MUST be a single JSON object, strictly following the schema (or an empty object {} as per rule 5). Do not include any conversational text, explanations, or markdown outside of the JSON itself.

Here are the images of the receipt:
`
